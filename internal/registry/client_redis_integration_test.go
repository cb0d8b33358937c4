//go:build integration

package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"veriledger/internal/consent"
	"veriledger/pkg/platform/sentinel"
	"veriledger/pkg/testutil/containers"
)

type RedisClientSuite struct {
	suite.Suite
	rc     *containers.RedisContainer
	client *RedisClient
	ctx    context.Context
}

func TestRedisClientSuite(t *testing.T) {
	suite.Run(t, new(RedisClientSuite))
}

func (s *RedisClientSuite) SetupSuite() {
	s.ctx = context.Background()
	s.rc = containers.NewRedisContainer(s.T())
	s.client = NewRedisClient(s.rc.Client)
}

func (s *RedisClientSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(s.ctx))
}

const redisTestHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func (s *RedisClientSuite) TestRegisterIfAbsentIsIdempotent() {
	first, err := s.client.RegisterIfAbsent(s.ctx, redisTestHash, consent.StatusPending, "principal-1")
	s.Require().NoError(err)
	s.Equal(consent.StatusPending, first.Status)

	// Re-registering with different parameters returns the original entry.
	second, err := s.client.RegisterIfAbsent(s.ctx, redisTestHash, consent.StatusGranted, "principal-2")
	s.Require().NoError(err)
	s.Equal(first.Status, second.Status)
	s.Equal("principal-1", second.OwnerPrincipal)
	s.Equal(first.RegisteredAt.UnixMicro(), second.RegisteredAt.UnixMicro())
}

func (s *RedisClientSuite) TestConcurrentRegistrationsCreateOneEntry() {
	const n = 25
	var wg sync.WaitGroup
	entries := make([]*Entry, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i], errs[i] = s.client.RegisterIfAbsent(s.ctx, redisTestHash, consent.StatusPending, "principal-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		s.Require().NoError(errs[i])
		s.Equal(entries[0].RegisteredAt.UnixMicro(), entries[i].RegisteredAt.UnixMicro())
	}
}

func (s *RedisClientSuite) TestFetch() {
	_, err := s.client.Fetch(s.ctx, redisTestHash)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.client.RegisterIfAbsent(s.ctx, redisTestHash, consent.StatusTransactionPending, "principal-1")
	s.Require().NoError(err)

	entry, err := s.client.Fetch(s.ctx, redisTestHash)
	s.Require().NoError(err)
	s.Equal(redisTestHash, entry.ContentHash)
	s.Equal(consent.StatusTransactionPending, entry.Status)
}

func (s *RedisClientSuite) TestUpdateStatusTransitions() {
	_, err := s.client.RegisterIfAbsent(s.ctx, redisTestHash, consent.StatusPending, "principal-1")
	s.Require().NoError(err)

	entry, err := s.client.UpdateStatus(s.ctx, redisTestHash, consent.StatusGranted)
	s.Require().NoError(err)
	s.Equal(consent.StatusGranted, entry.Status)

	entry, err = s.client.UpdateStatus(s.ctx, redisTestHash, consent.StatusRevoked)
	s.Require().NoError(err)
	s.Equal(consent.StatusRevoked, entry.Status)

	// Revoked is terminal.
	_, err = s.client.UpdateStatus(s.ctx, redisTestHash, consent.StatusGranted)
	s.Require().ErrorIs(err, consent.ErrInvalidTransition)

	_, err = s.client.UpdateStatus(s.ctx, "unknown", consent.StatusGranted)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
