package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"veriledger/internal/consent"
	domainerrors "veriledger/pkg/domain-errors"
	"veriledger/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestCreate() {
	s.Run("valid record starts pending with a hash", func() {
		rec, err := s.store.Create(s.ctx, "owner-1", "", KindHealth,
			map[string]any{"type": "lab_result", "value": float64(120)}, consent.StatusPending)
		s.Require().NoError(err)
		s.Equal(RegistrationPending, rec.RegistrationStatus)
		s.Len(rec.ContentHash, 64)
		s.NotEmpty(rec.ID)
	})

	s.Run("empty payload rejected", func() {
		_, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, nil, consent.StatusPending)
		s.Require().Error(err)
		s.True(domainerrors.Is(err, domainerrors.CodeBadRequest))
	})

	s.Run("missing owner rejected", func() {
		_, err := s.store.Create(s.ctx, "", "", KindHealth, map[string]any{"a": 1}, consent.StatusPending)
		s.Require().Error(err)
		s.True(domainerrors.Is(err, domainerrors.CodeBadRequest))
	})

	s.Run("empty principal defaults to owner", func() {
		rec, err := s.store.Create(s.ctx, "owner-1", "", KindHealth,
			map[string]any{"type": "note"}, consent.StatusPending)
		s.Require().NoError(err)
		s.Equal("owner-1", rec.OwnerPrincipal)
	})

	s.Run("unknown kind rejected", func() {
		_, err := s.store.Create(s.ctx, "owner-1", "", Kind("veterinary"), map[string]any{"a": 1}, consent.StatusPending)
		s.Require().Error(err)
		s.True(domainerrors.Is(err, domainerrors.CodeBadRequest))
	})
}

func (s *InMemoryStoreSuite) TestGet() {
	rec, err := s.store.Create(s.ctx, "owner-1", "", KindFinancial,
		map[string]any{"transactionType": "payment", "amount": float64(10)}, consent.StatusTransactionPending)
	s.Require().NoError(err)

	got, err := s.store.Get(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ContentHash, got.ContentHash)

	_, err = s.store.Get(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListByOwnerNewestFirst() {
	first, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, map[string]any{"n": 1}, consent.StatusPending)
	s.Require().NoError(err)
	second, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, map[string]any{"n": 2}, consent.StatusPending)
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, "owner-2", "principal-2", KindHealth, map[string]any{"n": 3}, consent.StatusPending)
	s.Require().NoError(err)

	got, err := s.store.ListByOwner(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(second.ID, got[0].ID)
	s.Equal(first.ID, got[1].ID)
}

func (s *InMemoryStoreSuite) TestListByHash() {
	payload := map[string]any{"type": "lab_result", "value": float64(120)}
	a, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, payload, consent.StatusPending)
	s.Require().NoError(err)
	b, err := s.store.Create(s.ctx, "owner-2", "principal-2", KindHealth, payload, consent.StatusPending)
	s.Require().NoError(err)
	s.Equal(a.ContentHash, b.ContentHash)

	got, err := s.store.ListByHash(s.ctx, a.ContentHash)
	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *InMemoryStoreSuite) TestStatusTransitions() {
	rec, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, map[string]any{"n": 1}, consent.StatusPending)
	s.Require().NoError(err)

	s.Run("mark registered sets ref, keeps hash", func() {
		s.Require().NoError(s.store.MarkRegistered(s.ctx, rec.ID, rec.ContentHash))
		got, err := s.store.Get(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(Registered, got.RegistrationStatus)
		s.Equal(rec.ContentHash, got.LedgerRef)
		s.Equal(rec.ContentHash, got.ContentHash)
	})

	s.Run("mark failed records reason", func() {
		s.Require().NoError(s.store.MarkRegistrationFailed(s.ctx, rec.ID, "ledger rejected"))
		got, err := s.store.Get(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(RegistrationFailed, got.RegistrationStatus)
		s.Equal("ledger rejected", got.FailureReason)
	})

	s.Run("unknown id not found", func() {
		s.ErrorIs(s.store.MarkRegistered(s.ctx, "missing", "ref"), sentinel.ErrNotFound)
		s.ErrorIs(s.store.MarkRegistrationFailed(s.ctx, "missing", "x"), sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestSetConsentByHash() {
	payload := map[string]any{"type": "lab_result"}
	a, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, payload, consent.StatusPending)
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, "owner-2", "principal-2", KindHealth, payload, consent.StatusPending)
	s.Require().NoError(err)
	other, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, map[string]any{"type": "scan"}, consent.StatusPending)
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetConsentByHash(s.ctx, a.ContentHash, consent.StatusGranted))

	got, err := s.store.ListByHash(s.ctx, a.ContentHash)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	for _, rec := range got {
		s.Equal(consent.StatusGranted, rec.ConsentStatus)
	}

	untouched, err := s.store.Get(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Equal(consent.StatusPending, untouched.ConsentStatus)

	s.Run("unknown hash is a no-op", func() {
		s.NoError(s.store.SetConsentByHash(s.ctx, "feedbeef", consent.StatusGranted))
	})
}

func (s *InMemoryStoreSuite) TestListPending() {
	a, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, map[string]any{"n": 1}, consent.StatusPending)
	s.Require().NoError(err)
	b, err := s.store.Create(s.ctx, "owner-1", "", KindHealth, map[string]any{"n": 2}, consent.StatusPending)
	s.Require().NoError(err)
	s.Require().NoError(s.store.MarkRegistered(s.ctx, a.ID, a.ContentHash))

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(b.ID, pending[0].ID)
}
