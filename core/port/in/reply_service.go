package in

import (
	"context"

	"reply_server/core/domain"
)

// ReplyService turns raw requests into structured emails.
type ReplyService interface {
	// GenerateReply answers a single email (reply) or the latest message of a thread.
	GenerateReply(ctx context.Context, req *domain.EmailRequest) (*domain.Email, error)
	// Compose writes a new email from instructions only.
	Compose(ctx context.Context, req *domain.EmailCompose) (*domain.Email, error)
}
