package accesstoken

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	token, err := Sign("secret", "user-1", "Alice@Example.com", "annual", time.Hour)
	require.NoError(t, err)

	id, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "alice@example.com", id.Email)
	assert.Equal(t, "annual", id.Tier)
}

func TestVerify_Rejects(t *testing.T) {
	expired, err := Sign("secret", "user-1", "a@example.com", "", -time.Minute)
	require.NoError(t, err)

	noEmail, err := Sign("secret", "user-1", "", "", time.Hour)
	require.NoError(t, err)

	foreign, err := Sign("other", "user-1", "a@example.com", "", time.Hour)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"no email":     noEmail,
		"wrong secret": foreign,
		"garbage":      "abc",
	}

	v := NewVerifier("secret")
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}
