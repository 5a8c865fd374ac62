package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var account = domain.AccountID(uuid.New())
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(account, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.String(), claims.AccountID)
	assert.Equal(t, account.String(), claims.Subject)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(account, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("different-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(account, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
}

func Test_ExtractAccountID(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(account, expiresIn)
	require.NoError(t, err)

	parsed, err := jwtService.ExtractAccountID(token)
	require.NoError(t, err)
	assert.Equal(t, account, parsed)
}

func Test_Adapter(t *testing.T) {
	adapter := NewJWTServiceAdapter(jwtService)
	token, err := jwtService.GenerateAccessToken(account, expiresIn)
	require.NoError(t, err)

	claims, err := adapter.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.String(), claims.AccountID)
	assert.NotEmpty(t, claims.TokenID)
}
