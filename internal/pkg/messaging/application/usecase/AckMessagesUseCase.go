package usecase

import (
	"context"
	"fmt"

	messaging "charla/internal/pkg/messaging/domain"
	repository "charla/internal/pkg/messaging/persistence/repository/port"
)

// AckMessagesInput advances a batch of messages to delivered or read on
// behalf of the acking user.
type AckMessagesInput struct {
	ConversationID string
	MessageIDs     []string
	ByUserID       string
	Status         messaging.MessageStatus
}

// AckMessagesUseCase applies delivery/read acknowledgments. Status movement
// is monotonic; read acks additionally zero the acking user's unread counter.
type AckMessagesUseCase struct {
	Repo repository.MessageRepository
}

func NewAckMessagesUseCase(repo repository.MessageRepository) *AckMessagesUseCase {
	return &AckMessagesUseCase{Repo: repo}
}

// Execute returns the ids whose status actually advanced.
func (uc *AckMessagesUseCase) Execute(ctx context.Context, in AckMessagesInput) ([]string, error) {
	if in.ConversationID == "" {
		return nil, messaging.ErrMissingConversation
	}
	if in.Status != messaging.StatusDelivered && in.Status != messaging.StatusRead {
		return nil, fmt.Errorf("messaging: %q is not an acknowledgeable status", in.Status)
	}
	if len(in.MessageIDs) == 0 {
		return nil, nil
	}

	ok, err := uc.Repo.IsMember(ctx, in.ConversationID, in.ByUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, messaging.ErrNotMember
	}

	advanced, err := uc.Repo.AdvanceStatus(ctx, in.ConversationID, in.MessageIDs, in.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if in.Status == messaging.StatusRead {
		if err := uc.Repo.ResetUnread(ctx, in.ConversationID, in.ByUserID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	return advanced, nil
}
