package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := ValidateJWT(token)
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user@example.com", claims["email"])
	assert.Equal(t, "access", claims["type"])
}

func TestRefreshTokenCarriesSessionBinding(t *testing.T) {
	token, err := GenerateRefreshToken("user@example.com", "session-123")
	require.NoError(t, err)

	parsed, err := ValidateJWT(token)
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "refresh", claims["type"])
	assert.Equal(t, "session-123", claims["sessionId"])
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestHashAndValidatePassword(t *testing.T) {
	hashed, err := HashPassword("s3cret!")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret!", hashed)

	assert.True(t, ValidatePassword(hashed, "s3cret!"))
	assert.False(t, ValidatePassword(hashed, "wrong"))
}
