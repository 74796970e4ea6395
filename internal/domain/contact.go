package domain

import (
	"context"
	"errors"
)

var ErrContactUnavailable = errors.New("telegram service not configured")

// ContactMessage is a public contact form submission.
type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Message string `json:"message" validate:"required,max=3500"`
}

// ContactNotifier delivers contact messages to the team.
type ContactNotifier interface {
	SendContact(ctx context.Context, msg ContactMessage) error
}

type ContactService interface {
	Submit(ctx context.Context, msg ContactMessage) error
}
