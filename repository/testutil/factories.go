package testutil

import (
	"time"

	"kinsluv/models"

	"github.com/google/uuid"
)

// NewTestUser creates a viewer with a fresh id and the default balance
func NewTestUser(username string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      models.RoleViewer,
		Coins:     100,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestUserWithCoins creates a viewer with a specific balance
func NewTestUserWithCoins(username string, coins int64) *models.User {
	user := NewTestUser(username)
	user.Coins = coins
	return user
}

// NewTestMessage creates a message for the given user and room
func NewTestMessage(user *models.User, room, text string) *models.Message {
	return &models.Message{
		ID:       uuid.NewString(),
		Room:     room,
		UserID:   user.ID,
		Username: user.Username,
		Text:     text,
		Time:     time.Now().UnixMilli(),
	}
}

// NewTestTransaction creates a gift transaction record
func NewTestTransaction(fromUserID, giftID, room string) *models.Transaction {
	return &models.Transaction{
		ID:     uuid.NewString(),
		UserID: fromUserID,
		GiftID: giftID,
		Room:   room,
		Time:   time.Now().UnixMilli(),
	}
}
