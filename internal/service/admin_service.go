package service

import (
	"context"

	"documind-api/internal/domain"
	apperrors "documind-api/pkg/errors"
)

type AdminService struct {
	roles    domain.RoleRepository
	checkout domain.CheckoutService
	auth     *AuthService
	logger   domain.Logger
}

// NewAdminService builds the admin operations. auth may be nil; when set, its role cache is
// cleared for users whose role changes.
func NewAdminService(
	roles domain.RoleRepository,
	checkout domain.CheckoutService,
	auth *AuthService,
	logger domain.Logger,
) *AdminService {
	return &AdminService{
		roles:    roles,
		checkout: checkout,
		auth:     auth,
		logger:   logger,
	}
}

// ListUsers returns role rows, narrowed to userIDs when any are given.
func (s *AdminService) ListUsers(ctx context.Context, userIDs []string) ([]*domain.UserRole, error) {
	return s.roles.ListRoles(ctx, userIDs)
}

func (s *AdminService) SetRole(ctx context.Context, userID string, role domain.Role) (*domain.UserRole, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	saved, err := s.roles.UpsertRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	if s.auth != nil {
		s.auth.forgetRole(userID)
	}
	return saved, nil
}

func (s *AdminService) ConfirmCryptoOrder(ctx context.Context, orderID, transactionRef string) (*domain.CheckoutResult, error) {
	res, err := s.checkout.ConfirmCryptoPayment(ctx, orderID, transactionRef)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Crypto order confirmed by admin", "order_id", orderID)
	return res, nil
}
