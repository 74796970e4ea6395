package service

import (
	"context"
	"fmt"
	"strings"

	"documind-api/internal/domain"
)

type ContactService struct {
	notifier domain.ContactNotifier
	logger   domain.Logger
}

// NewContactService accepts a nil notifier; Submit then reports domain.ErrContactUnavailable.
func NewContactService(notifier domain.ContactNotifier, logger domain.Logger) *ContactService {
	return &ContactService{
		notifier: notifier,
		logger:   logger,
	}
}

func (s *ContactService) Submit(ctx context.Context, msg domain.ContactMessage) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Message = strings.TrimSpace(msg.Message)
	if err := ValidateStruct(msg); err != nil {
		return err
	}
	if s.notifier == nil {
		s.logger.Error("Contact message dropped", domain.ErrContactUnavailable)
		return domain.ErrContactUnavailable
	}

	if err := s.notifier.SendContact(ctx, msg); err != nil {
		s.logger.Error("Failed to send contact message", err, "email", msg.Email)
		return fmt.Errorf("failed to send contact message: %w", err)
	}
	s.logger.Info("Contact message sent", "email", msg.Email)
	return nil
}
