package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleUser))
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleGuest))
	assert.False(t, ValidRole(Role("superuser")))
	assert.False(t, ValidRole(Role("")))
}

func TestHasRole(t *testing.T) {
	admin := &JWTClaims{Role: string(RoleAdmin)}
	user := &JWTClaims{Role: string(RoleUser)}
	guest := &JWTClaims{Role: string(RoleGuest)}

	// Admins satisfy every role check
	assert.True(t, admin.HasRole(RoleAdmin))
	assert.True(t, admin.HasRole(RoleUser))
	assert.True(t, admin.HasRole(RoleGuest))

	assert.True(t, user.HasRole(RoleUser))
	assert.False(t, user.HasRole(RoleAdmin))

	assert.True(t, guest.HasRole(RoleGuest))
	assert.False(t, guest.HasRole(RoleUser))
}

func TestHasPermission(t *testing.T) {
	admin := &JWTClaims{Role: string(RoleAdmin)}
	user := &JWTClaims{Role: string(RoleUser)}
	guest := &JWTClaims{Role: string(RoleGuest)}

	assert.True(t, admin.HasPermission(PermDeleteBot))
	assert.True(t, admin.HasPermission(PermManageUser))

	assert.True(t, user.HasPermission(PermReadBot))
	assert.True(t, user.HasPermission(PermWriteBot))
	assert.True(t, user.HasPermission(PermUseVoice))
	assert.False(t, user.HasPermission(PermDeleteBot))
	assert.False(t, user.HasPermission(PermManageUser))

	assert.True(t, guest.HasPermission(PermReadBot))
	assert.False(t, guest.HasPermission(PermWriteBot))
	assert.False(t, guest.HasPermission(PermUseVoice))

	unknown := &JWTClaims{Role: "mystery"}
	assert.False(t, unknown.HasPermission(PermReadBot))
}

func TestGenerateTokenCarriesRole(t *testing.T) {
	token, err := GenerateTokenForRole(7, "seven@example.com", RoleAdmin)
	assert.NoError(t, err)

	claims, err := ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "seven@example.com", claims.Email)
	assert.Equal(t, string(RoleAdmin), claims.Role)
}
