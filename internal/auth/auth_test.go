package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthplanner/internal/core"
)

func TestHashAndCheckPIN(t *testing.T) {
	hash, err := HashPIN("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)

	assert.NoError(t, CheckPIN(hash, "123456"))
	assert.ErrorIs(t, CheckPIN(hash, "654321"), ErrPINMismatch)
	assert.ErrorIs(t, CheckPIN("", "123456"), ErrPINMismatch)

	_, err = HashPIN("12345")
	assert.ErrorIs(t, err, core.ErrInvalidPIN)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.NoError(t, core.ValidatePIN(code))
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer("a-secret-of-enough-length", time.Hour, 24*time.Hour, 2*time.Hour).
		WithClock(func() time.Time { return now })

	pair, err := iss.Pair(42, "5551234567")
	require.NoError(t, err)

	claims, err := iss.Parse(pair.Access, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "5551234567", claims.Phone)

	// A refresh token is not an access token.
	_, err = iss.Parse(pair.Refresh, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	next, err := iss.Refresh(pair.Refresh)
	require.NoError(t, err)
	claims, err = iss.Parse(next.Access, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)

	_, err = iss.Refresh(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiryAndTampering(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	iss := NewIssuer("a-secret-of-enough-length", time.Hour, 24*time.Hour, 2*time.Hour).WithClock(clock)

	session, err := iss.Session(7, "5550000000")
	require.NoError(t, err)
	_, err = iss.Parse(session, KindSession)
	require.NoError(t, err)

	other := NewIssuer("another-secret-entirely", time.Hour, time.Hour, time.Hour).WithClock(clock)
	_, err = other.Parse(session, KindSession)
	assert.ErrorIs(t, err, ErrInvalidToken)

	now = now.Add(3 * time.Hour)
	_, err = iss.Parse(session, KindSession)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("not-a-token", KindSession)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPendingToken(t *testing.T) {
	iss := NewIssuer("a-secret-of-enough-length", time.Hour, time.Hour, time.Hour)
	tok, err := iss.Pending("5559876543")
	require.NoError(t, err)
	claims, err := iss.Parse(tok, KindPending)
	require.NoError(t, err)
	assert.Equal(t, "5559876543", claims.Phone)
	assert.Zero(t, claims.UserID)
}
