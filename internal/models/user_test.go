package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}

func TestBeforeCreateHashesAndDefaultsRole(t *testing.T) {
	u := &User{Username: "ada", Email: "ada@example.com", Password: "plaintext-secret"}
	require.NoError(t, u.BeforeCreate(nil))

	assert.NotEqual(t, "plaintext-secret", u.Password)
	assert.True(t, CheckPasswordHash("plaintext-secret", u.Password))
	assert.Equal(t, "user", u.Role)

	admin := &User{Username: "root", Email: "root@example.com", Password: "x-secret-x", Role: "admin"}
	require.NoError(t, admin.BeforeCreate(nil))
	assert.Equal(t, "admin", admin.Role)
}

func TestUserJSONNeverExposesPassword(t *testing.T) {
	u := User{ID: 1, Username: "ada", Email: "ada@example.com", Password: "hashed"}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hashed")
	assert.NotContains(t, string(raw), "password")

	resp := u.ToResponse()
	assert.Equal(t, u.Username, resp.Username)
	assert.Equal(t, u.Email, resp.Email)
}
