package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, domain.RoleAdmin.Valid())
	assert.True(t, domain.RoleOwner.Valid())
	assert.True(t, domain.RoleEmployee.Valid())
	assert.True(t, domain.RoleViewer.Valid())
	assert.False(t, domain.Role("superuser").Valid())
	assert.False(t, domain.Role("").Valid())
}

func TestUser_IsLocked(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	assert.False(t, (&domain.User{}).IsLocked())
	assert.True(t, (&domain.User{LockUntil: &future}).IsLocked())
	assert.False(t, (&domain.User{LockUntil: &past}).IsLocked())
}

// TestUser_MarshalJSON guards against the password hash or lockout counters
// ever leaking into a response body.
func TestUser_MarshalJSON(t *testing.T) {
	lockUntil := time.Now().Add(time.Hour)
	u := domain.User{
		ID:            "user-123",
		Email:         "frames@example.com",
		PasswordHash:  "$2a$12$secret",
		FirstName:     "Pat",
		Role:          domain.RoleOwner,
		LoginAttempts: 3,
		LockUntil:     &lockUntil,
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "user-123", out["id"])
	assert.Equal(t, "frames@example.com", out["email"])
	assert.Equal(t, "owner", out["role"])
	assert.NotContains(t, out, "password_hash")
	assert.NotContains(t, out, "login_attempts")
	assert.NotContains(t, out, "lock_until")
	assert.NotContains(t, string(raw), "secret")
}
