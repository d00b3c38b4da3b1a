package usecase

import (
	"context"
	"fmt"
	"time"

	messaging "charla/internal/pkg/messaging/domain"
	repository "charla/internal/pkg/messaging/persistence/repository/port"
)

// SendMessageResult carries the persisted message plus the conversation's
// member list so the caller can fan out and push-notify without a second
// round-trip.
type SendMessageResult struct {
	Message messaging.Message
	Members []string
}

// SendMessageUseCase validates an envelope, checks membership and hands the
// message to the repository, which assigns the durable id and timestamp.
type SendMessageUseCase struct {
	Repo repository.MessageRepository
}

func NewSendMessageUseCase(repo repository.MessageRepository) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, e messaging.Envelope) (*SendMessageResult, error) {
	msg, err := messaging.NewMessage(e, time.Now())
	if err != nil {
		return nil, err
	}

	ok, err := uc.Repo.IsMember(ctx, e.ConversationID, e.SenderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, messaging.ErrNotMember
	}

	id, createdAt, err := uc.Repo.SaveMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id
	msg.CreatedAt = createdAt
	msg.Status = messaging.StatusSent

	members, err := uc.Repo.MemberIDs(ctx, e.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &SendMessageResult{Message: msg, Members: members}, nil
}
