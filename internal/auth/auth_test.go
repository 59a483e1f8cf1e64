package auth

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Moichehub/marketplace/internal/config"
)

func TestHasher(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("pass123")
	require.NoError(t, err)
	assert.NotEqual(t, "pass123", hash)

	assert.True(t, hasher.Check("pass123", hash))
	assert.False(t, hasher.Check("pass124", hash))
	assert.False(t, hasher.Check("", hash))
	assert.False(t, hasher.Check("pass123", "not-a-hash"))
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
	assert.Equal(t, 12, NewHasher(12).cost)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour})
	require.NoError(t, err)

	token, expiresAt, err := issuer.Issue(42, "alice", true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsSeller)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	issuer, err := NewTokenIssuer(config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	other, err := NewTokenIssuer(config.AuthConfig{JWTSecret: "other", TokenTTL: time.Hour})
	require.NoError(t, err)

	token, _, err := other.Issue(1, "bob", false)
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenExpired(t *testing.T) {
	issuer, err := NewTokenIssuer(config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Minute})
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := issuer.Issue(1, "bob", false)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer(config.AuthConfig{TokenTTL: time.Hour})
	assert.Error(t, err)
}
