package testutil

import (
	"context"
	"net/http"

	"veriledger/internal/platform/middleware"
)

// WithOwner adds an authenticated identity to the request context, simulating
// what the auth middleware does after validating a token. An empty principal
// defaults to the owner ID, matching token validation.
func WithOwner(req *http.Request, ownerID, principal string) *http.Request {
	ctx := req.Context()
	if principal == "" {
		principal = ownerID
	}
	if ownerID != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyOwnerID, ownerID)
	}
	if principal != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyPrincipal, principal)
	}
	return req.WithContext(ctx)
}

// WithRequestID stamps a request ID onto the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, requestID)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
