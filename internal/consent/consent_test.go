package consent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		action  Action
		want    Status
		wantErr bool
	}{
		{"pending grant", StatusPending, ActionGrant, StatusGranted, false},
		{"pending reject", StatusPending, ActionReject, StatusRejected, false},
		{"transaction pending grant", StatusTransactionPending, ActionGrant, StatusGranted, false},
		{"transaction pending reject", StatusTransactionPending, ActionReject, StatusRejected, false},
		{"granted revoke", StatusGranted, ActionRevoke, StatusRevoked, false},
		{"pending revoke illegal", StatusPending, ActionRevoke, "", true},
		{"granted grant illegal", StatusGranted, ActionGrant, "", true},
		{"rejected is terminal", StatusRejected, ActionGrant, "", true},
		{"revoked is terminal", StatusRevoked, ActionGrant, "", true},
		{"revoked cannot re-revoke", StatusRevoked, ActionRevoke, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.current, tt.action)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(StatusPending, StatusGranted))
	assert.NoError(t, Validate(StatusTransactionPending, StatusRejected))
	assert.NoError(t, Validate(StatusGranted, StatusRevoked))
	assert.ErrorIs(t, Validate(StatusPending, StatusRevoked), ErrInvalidTransition)
	assert.ErrorIs(t, Validate(StatusRevoked, StatusGranted), ErrInvalidTransition)
	assert.ErrorIs(t, Validate(StatusGranted, StatusPending), ErrInvalidTransition)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusRevoked.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusGranted.Terminal())

	assert.True(t, StatusRevoked.Denies())
	assert.True(t, StatusRejected.Denies())
	assert.False(t, StatusPending.Denies())
	assert.False(t, StatusTransactionPending.Denies())
	assert.False(t, StatusGranted.Denies())

	assert.True(t, StatusPending.Valid())
	assert.False(t, Status("BOGUS").Valid())
}
