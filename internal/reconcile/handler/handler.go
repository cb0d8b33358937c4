// Package handler exposes the reconciliation service over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veriledger/internal/consent"
	"veriledger/internal/platform/middleware"
	"veriledger/internal/reconcile"
	"veriledger/internal/record"
	domainerrors "veriledger/pkg/domain-errors"
)

type Handler struct {
	service *reconcile.Service
	logger  *slog.Logger
}

func New(service *reconcile.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the API onto r. Callers attach auth middleware; every
// route here expects an authenticated identity in the context.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/records", h.submitRecord)
	r.Get("/records", h.listRecords)
	r.Get("/records/{id}", h.getRecord)
	r.Get("/verify/{principal}/{hash}", h.verify)
	r.Post("/consent/{hash}", h.updateConsent)
}

type submitRequest struct {
	Kind              record.Kind    `json:"kind"`
	Payload           map[string]any `json:"payload"`
	SharedForResearch bool           `json:"shared_for_research"`
}

// pendingResponse is returned with 502 when the record was stored but the
// ledger could not be reached; the client polls the record until repair
// completes the registration.
type pendingResponse struct {
	Error  string         `json:"error"`
	Code   string         `json:"code"`
	Record *record.Record `json:"record"`
}

func (h *Handler) submitRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domainerrors.New(domainerrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	rec, err := h.service.Submit(ctx, reconcile.SubmitInput{
		OwnerID:           middleware.GetOwnerID(ctx),
		OwnerPrincipal:    middleware.GetPrincipal(ctx),
		Kind:              req.Kind,
		Payload:           req.Payload,
		SharedForResearch: req.SharedForResearch,
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.CodeLedgerUnavailable) && rec != nil {
			h.writeJSON(w, r, http.StatusBadGateway, pendingResponse{
				Error:  "ledger unreachable; registration pending",
				Code:   string(domainerrors.CodeLedgerUnavailable),
				Record: rec,
			})
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, rec)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.service.GetRecord(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// Records of other owners read as absent.
	if rec.OwnerID != middleware.GetOwnerID(ctx) {
		h.writeError(w, r, domainerrors.New(domainerrors.CodeNotFound, "record not found"))
		return
	}
	h.writeJSON(w, r, http.StatusOK, rec)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs, err := h.service.ListRecords(ctx, middleware.GetOwnerID(ctx))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*record.Record{}
	}
	h.writeJSON(w, r, http.StatusOK, recs)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Verify(r.Context(),
		chi.URLParam(r, "principal"), chi.URLParam(r, "hash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, result)
}

type consentRequest struct {
	Action consent.Action `json:"action"`
}

func (h *Handler) updateConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req consentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domainerrors.New(domainerrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	entry, err := h.service.UpdateConsent(ctx,
		middleware.GetPrincipal(ctx), chi.URLParam(r, "hash"), req.Action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, entry)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domainerrors.CodeOf(err)
	status := domainerrors.ToHTTPStatus(code)

	message := "internal error"
	var de *domainerrors.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	h.writeJSON(w, r, status, errorResponse{
		Error:     message,
		Code:      string(code),
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
