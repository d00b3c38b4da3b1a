package usecase

import (
	"context"
	"fmt"

	messaging "charla/internal/pkg/messaging/domain"
	repository "charla/internal/pkg/messaging/persistence/repository/port"
)

// AuthorizeJoinUseCase checks conversation membership before a connection is
// admitted to the conversation's realtime room.
type AuthorizeJoinUseCase struct {
	Repo repository.MessageRepository
}

func NewAuthorizeJoinUseCase(repo repository.MessageRepository) *AuthorizeJoinUseCase {
	return &AuthorizeJoinUseCase{Repo: repo}
}

func (uc *AuthorizeJoinUseCase) Execute(ctx context.Context, conversationID string, userID string) error {
	if conversationID == "" {
		return messaging.ErrMissingConversation
	}
	ok, err := uc.Repo.IsMember(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return messaging.ErrNotMember
	}
	return nil
}
