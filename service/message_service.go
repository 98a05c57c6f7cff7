package service

import (
	"context"
	"fmt"
	"time"

	"kinsluv/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// messageService implements the MessageService interface
type messageService struct {
	uowFactory UnitOfWorkFactory
}

// NewMessageService creates a new message service
func NewMessageService(uowFactory UnitOfWorkFactory) MessageService {
	return &messageService{
		uowFactory: uowFactory,
	}
}

// Post persists a message for a non-banned user and returns the stored
// record. The ban check reads storage, not the session snapshot, because ban
// state can change mid-session.
func (s *messageService) Post(ctx context.Context, userID, room, text string) (*models.Message, error) {
	if text == "" {
		return nil, fmt.Errorf("message text required")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Banned {
		return nil, ErrBanned
	}

	msg := &models.Message{
		ID:       uuid.NewString(),
		Room:     room,
		UserID:   user.ID,
		Username: user.Username,
		Text:     text,
		Time:     time.Now().UnixMilli(),
	}

	if err := uow.MessageRepository().Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return msg, nil
}

// Recent returns room history, oldest first
func (s *messageService) Recent(ctx context.Context, room string, limit int) ([]*models.Message, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	messages, err := uow.MessageRepository().Recent(ctx, room, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return messages, nil
}

// Delete removes a message (admin moderation)
func (s *messageService) Delete(ctx context.Context, id string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("messageId", id).Info("Message deleted")
	return nil
}
