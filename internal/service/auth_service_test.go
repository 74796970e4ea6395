package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"documind-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/supabase-go"
)

// MockSupabaseClient for testing
type MockSupabaseClient struct {
	users map[string]*domain.SupabaseUser
}

func NewMockSupabaseClient() *MockSupabaseClient {
	return &MockSupabaseClient{
		users: map[string]*domain.SupabaseUser{
			"valid-token": {ID: "user-123", Email: "test@example.com"},
		},
	}
}

func (m *MockSupabaseClient) Initialize() error {
	return nil
}

func (m *MockSupabaseClient) ValidateToken(token string) (*domain.SupabaseUser, error) {
	if user, ok := m.users[token]; ok {
		return user, nil
	}
	return nil, errors.New("token validation failed")
}

func (m *MockSupabaseClient) DB() *supabase.Client {
	return nil
}

func (m *MockSupabaseClient) GetClientWithToken(token string) (*supabase.Client, error) {
	return nil, nil
}

func (m *MockSupabaseClient) ServiceRoleClient() (*supabase.Client, error) {
	return nil, nil
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc := NewAuthService(NewMockSupabaseClient(), &mockRoleRepository{}, NewMockLogger())

	user, err := svc.ValidateToken("valid-token")
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, "test@example.com", user.Email)

	_, err = svc.ValidateToken("invalid-token")
	assert.EqualError(t, err, "invalid token: token validation failed")

	_, err = svc.ValidateToken("")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthService_IsAdminCachesRole(t *testing.T) {
	roles := &mockRoleRepository{roles: map[string]domain.Role{"admin-1": domain.RoleAdmin}}
	svc := NewAuthService(NewMockSupabaseClient(), roles, NewMockLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		isAdmin, err := svc.IsAdmin(ctx, "admin-1")
		require.NoError(t, err)
		assert.True(t, isAdmin)
	}
	assert.Equal(t, 1, roles.gets)

	isAdmin, err := svc.IsAdmin(ctx, "someone")
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestAuthService_RoleCacheDropsStaleEntries(t *testing.T) {
	roles := &mockRoleRepository{roles: map[string]domain.Role{"admin-1": domain.RoleAdmin}}
	svc := NewAuthService(NewMockSupabaseClient(), roles, NewMockLogger())
	ctx := context.Background()

	start := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	for _, id := range []string{"user-1", "user-2", "user-3"} {
		_, err := svc.IsAdmin(ctx, id)
		require.NoError(t, err)
	}
	assert.Len(t, svc.roleCache, 3)

	svc.now = func() time.Time { return start.Add(roleCacheTTL) }
	isAdmin, err := svc.IsAdmin(ctx, "admin-1")
	require.NoError(t, err)
	assert.True(t, isAdmin)
	assert.Len(t, svc.roleCache, 1)
	assert.Contains(t, svc.roleCache, "admin-1")
	assert.Equal(t, 4, roles.gets)
}

func TestAdminService_SetRole(t *testing.T) {
	roles := &mockRoleRepository{roles: map[string]domain.Role{"user-1": domain.RoleAdmin}}
	auth := NewAuthService(NewMockSupabaseClient(), roles, NewMockLogger())
	admin := NewAdminService(roles, nil, auth, NewMockLogger())
	ctx := context.Background()

	isAdmin, _ := auth.IsAdmin(ctx, "user-1")
	require.True(t, isAdmin)

	_, err := admin.SetRole(ctx, "user-1", "superuser")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	saved, err := admin.SetRole(ctx, "user-1", domain.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, saved.Role)

	isAdmin, _ = auth.IsAdmin(ctx, "user-1")
	assert.False(t, isAdmin)
}

func TestAdminService_ListUsersByIDs(t *testing.T) {
	roles := &mockRoleRepository{roles: map[string]domain.Role{
		"user-1": domain.RoleAdmin,
		"user-2": domain.RoleUser,
		"user-3": domain.RoleModerator,
	}}
	admin := NewAdminService(roles, nil, NewAuthService(NewMockSupabaseClient(), roles, NewMockLogger()), NewMockLogger())

	all, err := admin.ListUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := admin.ListUsers(context.Background(), []string{"user-3", "missing"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "user-3", some[0].UserID)
}
