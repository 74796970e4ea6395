package domain

import (
	"context"
	"time"
)

// SupabaseUser represents a user from Supabase Auth
type SupabaseUser struct {
	ID           string
	Email        string
	UserMetadata map[string]interface{}
	CreatedAt    string
	UpdatedAt    string
}

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleModerator:
		return true
	}
	return false
}

// UserRole is a row of user_roles. Users without a row are treated as RoleUser.
type UserRole struct {
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RoleRepository interface {
	GetRole(ctx context.Context, userID string) (Role, error)
	// ListRoles returns every role row, or only those for userIDs when it is not empty.
	ListRoles(ctx context.Context, userIDs []string) ([]*UserRole, error)
	UpsertRole(ctx context.Context, userID string, role Role) (*UserRole, error)
}

// AuthService validates bearer tokens and resolves roles.
type AuthService interface {
	ValidateToken(token string) (*SupabaseUser, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AdminService holds the operations behind the admin routes.
type AdminService interface {
	ListUsers(ctx context.Context, userIDs []string) ([]*UserRole, error)
	SetRole(ctx context.Context, userID string, role Role) (*UserRole, error)
	ConfirmCryptoOrder(ctx context.Context, orderID, transactionRef string) (*CheckoutResult, error)
}
