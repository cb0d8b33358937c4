package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriledger/internal/consent"
	"veriledger/pkg/platform/sentinel"
)

const testHash = "8a0ad0b49861d6ddbbdbd867cd9e0bcdc29cd446fc08b24e31572d977dea25ac"

func TestInMemoryClient_RegisterIfAbsent(t *testing.T) {
	ctx := context.Background()
	client := NewInMemoryClient()

	first, err := client.RegisterIfAbsent(ctx, testHash, consent.StatusPending, "principal-1")
	require.NoError(t, err)
	assert.Equal(t, consent.StatusPending, first.Status)
	assert.Equal(t, "principal-1", first.OwnerPrincipal)
	assert.False(t, first.RegisteredAt.IsZero())

	// Second registration returns the existing entry unchanged: the status
	// and owner from the retry must not overwrite the original.
	second, err := client.RegisterIfAbsent(ctx, testHash, consent.StatusGranted, "principal-2")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.OwnerPrincipal, second.OwnerPrincipal)
	assert.Equal(t, first.RegisteredAt, second.RegisteredAt)
}

// TestInMemoryClient_ConcurrentRegistration verifies that N concurrent
// registrations of the same hash produce exactly one entry and all callers
// observe it.
func TestInMemoryClient_ConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	client := NewInMemoryClient()
	const goroutines = 50

	var wg sync.WaitGroup
	entries := make([]*Entry, goroutines)
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i], errs[i] = client.RegisterIfAbsent(ctx, testHash, consent.StatusPending, "principal-1")
		}(i)
	}
	wg.Wait()

	canonical, err := client.Fetch(ctx, testHash)
	require.NoError(t, err)
	for i, entry := range entries {
		require.NoError(t, errs[i])
		assert.Equal(t, canonical.RegisteredAt, entry.RegisteredAt)
		assert.Equal(t, canonical.Status, entry.Status)
	}
}

func TestInMemoryClient_Fetch(t *testing.T) {
	ctx := context.Background()
	client := NewInMemoryClient()

	_, err := client.Fetch(ctx, testHash)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = client.RegisterIfAbsent(ctx, testHash, consent.StatusPending, "principal-1")
	require.NoError(t, err)

	entry, err := client.Fetch(ctx, testHash)
	require.NoError(t, err)
	assert.Equal(t, testHash, entry.ContentHash)
}

func TestInMemoryClient_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	client := NewInMemoryClient()
	_, err := client.RegisterIfAbsent(ctx, testHash, consent.StatusPending, "principal-1")
	require.NoError(t, err)

	t.Run("legal transition applied", func(t *testing.T) {
		entry, err := client.UpdateStatus(ctx, testHash, consent.StatusGranted)
		require.NoError(t, err)
		assert.Equal(t, consent.StatusGranted, entry.Status)
	})

	t.Run("illegal transition rejected", func(t *testing.T) {
		_, err := client.UpdateStatus(ctx, testHash, consent.StatusPending)
		require.ErrorIs(t, err, consent.ErrInvalidTransition)
	})

	t.Run("granted to revoked", func(t *testing.T) {
		entry, err := client.UpdateStatus(ctx, testHash, consent.StatusRevoked)
		require.NoError(t, err)
		assert.Equal(t, consent.StatusRevoked, entry.Status)
	})

	t.Run("terminal status frozen", func(t *testing.T) {
		_, err := client.UpdateStatus(ctx, testHash, consent.StatusGranted)
		require.ErrorIs(t, err, consent.ErrInvalidTransition)
	})

	t.Run("unknown hash", func(t *testing.T) {
		_, err := client.UpdateStatus(ctx, "deadbeef", consent.StatusGranted)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

// Mutating a returned entry must not leak into the ledger.
func TestInMemoryClient_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	client := NewInMemoryClient()
	entry, err := client.RegisterIfAbsent(ctx, testHash, consent.StatusPending, "principal-1")
	require.NoError(t, err)

	entry.Status = consent.StatusGranted

	stored, err := client.Fetch(ctx, testHash)
	require.NoError(t, err)
	assert.Equal(t, consent.StatusPending, stored.Status)
}
