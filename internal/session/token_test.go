package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "smartgate/pkg/domain-errors"
)

func TestTokenSigner(t *testing.T) {
	signer := NewTokenSigner("test-signing-key", "smartgate")
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	sess := &Session{ID: "5f0c", UserID: 12, Role: "RESIDENTE", ExpiresAt: now.Add(time.Hour)}

	token, err := signer.Sign(sess, now)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		claims, err := signer.Validate(token, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "12", claims.UserID)
		assert.Equal(t, "5f0c", claims.SessionID)
		assert.Equal(t, "RESIDENTE", claims.Role)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := signer.Validate(token, now.Add(2*time.Hour))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Equal(t, "session has expired", dErrors.MessageOf(err))
	})

	t.Run("other key", func(t *testing.T) {
		_, err := NewTokenSigner("other-key", "smartgate").Validate(token, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("other issuer", func(t *testing.T) {
		_, err := NewTokenSigner("test-signing-key", "elsewhere").Validate(token, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := signer.Validate("not-a-token", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
