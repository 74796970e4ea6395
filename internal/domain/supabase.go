package domain

import "github.com/supabase-community/supabase-go"

type SupabaseClient interface {
	Initialize() error
	ValidateToken(token string) (*SupabaseUser, error)

	DB() *supabase.Client
	// GetClientWithToken returns a client that acts as the token's user, so row level security applies.
	GetClientWithToken(token string) (*supabase.Client, error)
	// ServiceRoleClient bypasses row level security. Used for admin reads only.
	ServiceRoleClient() (*supabase.Client, error)
}
