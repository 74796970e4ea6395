package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"documind-api/internal/domain"
)

const roleCacheTTL = 30 * time.Second

type roleCacheEntry struct {
	role      domain.Role
	expiresAt time.Time
}

type AuthService struct {
	supabaseClient domain.SupabaseClient
	roles          domain.RoleRepository
	logger         domain.Logger

	roleCacheMu sync.RWMutex
	roleCache   map[string]roleCacheEntry
	now         func() time.Time
}

func NewAuthService(
	supabaseClient domain.SupabaseClient,
	roles domain.RoleRepository,
	logger domain.Logger,
) *AuthService {
	return &AuthService{
		supabaseClient: supabaseClient,
		roles:          roles,
		logger:         logger,
		roleCache:      make(map[string]roleCacheEntry),
		now:            time.Now,
	}
}

// ValidateToken validates a bearer token against Supabase Auth.
func (s *AuthService) ValidateToken(token string) (*domain.SupabaseUser, error) {
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	user, err := s.supabaseClient.ValidateToken(token)
	if err != nil {
		s.logger.Error("Failed to validate token with Supabase", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return user, nil
}

// IsAdmin reads the user's role from user_roles. Results are cached briefly.
func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	role, err := s.role(ctx, userID)
	if err != nil {
		return false, err
	}
	return role == domain.RoleAdmin, nil
}

func (s *AuthService) role(ctx context.Context, userID string) (domain.Role, error) {
	now := s.now()
	s.roleCacheMu.RLock()
	entry, ok := s.roleCache[userID]
	s.roleCacheMu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.role, nil
	}

	role, err := s.roles.GetRole(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user role: %w", err)
	}

	s.roleCacheMu.Lock()
	for id, cached := range s.roleCache {
		if !now.Before(cached.expiresAt) {
			delete(s.roleCache, id)
		}
	}
	s.roleCache[userID] = roleCacheEntry{role: role, expiresAt: now.Add(roleCacheTTL)}
	s.roleCacheMu.Unlock()

	return role, nil
}

// forgetRole drops a cached role so a change is visible on the next request.
func (s *AuthService) forgetRole(userID string) {
	s.roleCacheMu.Lock()
	delete(s.roleCache, userID)
	s.roleCacheMu.Unlock()
}
