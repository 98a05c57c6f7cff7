package service

import (
	"context"
	"fmt"
	"time"

	"kinsluv/events"
	"kinsluv/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// giftService implements the GiftService interface
type giftService struct {
	uowFactory UnitOfWorkFactory
}

// NewGiftService creates a new gift service
func NewGiftService(uowFactory UnitOfWorkFactory) GiftService {
	return &giftService{
		uowFactory: uowFactory,
	}
}

// SendGift validates and executes a gift purchase.
//
// The whole sequence runs in one database transaction, and the debit itself
// is a conditional update (coins = coins - cost WHERE coins >= cost). Two
// sends from the same user racing each other therefore cannot both observe
// the pre-debit balance: whichever update lands second sees the reduced
// balance and fails if it no longer covers the cost. There is also no
// debit-without-record state to compensate for, since the audit row commits
// or rolls back together with the debit.
func (s *giftService) SendGift(ctx context.Context, userID, room, giftID string) (*models.GiftReceipt, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	// Fresh read: the session's cached user record is not trusted for ban
	// state or balance.
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

	gift, err := uow.GiftRepository().GetByID(ctx, giftID)
	if err != nil {
		return nil, fmt.Errorf("failed to get gift: %w", err)
	}
	if gift == nil {
		return nil, ErrGiftNotFound
	}

	if err := uow.UserRepository().DeductCoins(ctx, userID, gift.Cost); err != nil {
		return nil, fmt.Errorf("failed to deduct gift cost: %w", err)
	}

	now := time.Now().UnixMilli()
	txn := &models.Transaction{
		ID:     uuid.NewString(),
		UserID: userID,
		GiftID: gift.ID,
		Room:   room,
		Time:   now,
	}
	if err := uow.TransactionRepository().Record(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	// Post-debit re-read so the broadcast carries the authoritative balance
	updated, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get updated user: %w", err)
	}

	uow.Publish(events.GiftSentEvent{
		UserID:   userID,
		GiftID:   gift.ID,
		Room:     room,
		Cost:     gift.Cost,
		NewCoins: updated.Coins,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userId": userID,
		"giftId": gift.ID,
		"room":   room,
		"cost":   gift.Cost,
		"coins":  updated.Coins,
	}).Info("Gift sent")

	return &models.GiftReceipt{
		From:      user.Username,
		Gift:      gift,
		UserCoins: updated.Coins,
		Room:      room,
		Time:      now,
	}, nil
}

// ListGifts returns the catalog
func (s *giftService) ListGifts(ctx context.Context) ([]*models.Gift, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	gifts, err := uow.GiftRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return gifts, nil
}

// ListTransactions returns the detailed audit log, newest first
func (s *giftService) ListTransactions(ctx context.Context, limit int) ([]*models.TransactionDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transactions, err := uow.TransactionRepository().ListDetailed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transactions, nil
}
