package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayride/wayride-backend/internal/models"
	"gorm.io/gorm"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	user := &models.User{
		Model: gorm.Model{ID: 42},
		Email: "driver@example.com",
		Role:  models.RoleDriver,
	}

	signed, err := GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	token, err := ValidateToken(signed)
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.EqualValues(t, 42, claims["id"])
	assert.Equal(t, "driver@example.com", claims["email"])
	assert.Equal(t, "driver", claims["role"])
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	signed, err := GenerateToken(&models.User{Model: gorm.Model{ID: 1}, Email: "x@example.com", Role: models.RoleRider})
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "another-secret")
	_, err = ValidateToken(signed)
	assert.Error(t, err)
}
