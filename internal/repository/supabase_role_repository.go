package repository

import (
	"context"
	"fmt"
	"time"

	"documind-api/internal/domain"

	"github.com/supabase-community/postgrest-go"
)

const userRolesTable = "user_roles"

// SupabaseRoleRepository reads and writes user_roles with the service-role client.
type SupabaseRoleRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

func NewSupabaseRoleRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseRoleRepository {
	return &SupabaseRoleRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

// GetRole returns the user's role, or RoleUser when the user has no row.
func (r *SupabaseRoleRepository) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	client, err := r.supabaseClient.ServiceRoleClient()
	if err != nil {
		return "", err
	}

	var rows []struct {
		Role domain.Role `json:"role"`
	}
	if _, err := client.From(userRolesTable).
		Select("role", "", false).
		Eq("user_id", userID).
		ExecuteTo(&rows); err != nil {
		return "", fmt.Errorf("failed to get user role: %w", err)
	}

	if len(rows) == 0 || rows[0].Role == "" {
		return domain.RoleUser, nil
	}
	return rows[0].Role, nil
}

func (r *SupabaseRoleRepository) ListRoles(ctx context.Context, userIDs []string) ([]*domain.UserRole, error) {
	client, err := r.supabaseClient.ServiceRoleClient()
	if err != nil {
		return nil, err
	}

	query := client.From(userRolesTable).
		Select("user_id, role, created_at, updated_at", "", false)
	if len(userIDs) > 0 {
		query = query.In("user_id", userIDs)
	}

	roles := []*domain.UserRole{}
	if _, err := query.
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&roles); err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	return roles, nil
}

// UpsertRole inserts or replaces the user's role, keyed on user_id.
func (r *SupabaseRoleRepository) UpsertRole(ctx context.Context, userID string, role domain.Role) (*domain.UserRole, error) {
	client, err := r.supabaseClient.ServiceRoleClient()
	if err != nil {
		return nil, err
	}

	row := map[string]interface{}{
		"user_id":    userID,
		"role":       role,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}

	var saved domain.UserRole
	if _, err := client.From(userRolesTable).
		Upsert(row, "user_id", "representation", "").
		Single().
		ExecuteTo(&saved); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	r.logger.Info("User role updated", "user_id", userID, "role", role)
	return &saved, nil
}
