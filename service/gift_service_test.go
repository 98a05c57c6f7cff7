package service

import (
	"context"
	"errors"
	"testing"

	"kinsluv/events"
	"kinsluv/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGiftService_SendGift_Success(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockGiftRepo := new(MockGiftRepository)
	mockTxnRepo := new(MockTransactionRepository)

	mockUoW.SetRepositories(mockUserRepo, nil, mockGiftRepo, mockTxnRepo)

	service := NewGiftService(mockFactory)

	sender := &models.User{ID: "u1", Username: "alice", Coins: 100}
	afterDebit := &models.User{ID: "u1", Username: "alice", Coins: 80}
	gift := &models.Gift{ID: "g2", Name: "Heart", Cost: 20}

	// Mock expectations
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByID", ctx, "u1").Return(sender, nil).Once()
	mockGiftRepo.On("GetByID", ctx, "g2").Return(gift, nil)
	mockUserRepo.On("DeductCoins", ctx, "u1", int64(20)).Return(nil)
	mockTxnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
		return txn.UserID == "u1" &&
			txn.GiftID == "g2" &&
			txn.Room == "main" &&
			txn.ID != "" &&
			txn.Time > 0
	})).Return(nil)
	mockUserRepo.On("GetByID", ctx, "u1").Return(afterDebit, nil).Once()

	receipt, err := service.SendGift(ctx, "u1", "main", "g2")

	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "alice", receipt.From)
	assert.Equal(t, gift, receipt.Gift)
	assert.Equal(t, int64(80), receipt.UserCoins)
	assert.Equal(t, "main", receipt.Room)

	// Event is published inside the transaction and flushed on commit
	require.Len(t, mockUoW.Published, 1)
	sent, ok := mockUoW.Published[0].(events.GiftSentEvent)
	require.True(t, ok)
	assert.Equal(t, "u1", sent.UserID)
	assert.Equal(t, int64(80), sent.NewCoins)

	mockFactory.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockGiftRepo.AssertExpectations(t)
	mockTxnRepo.AssertExpectations(t)
}

func TestGiftService_SendGift_InsufficientCoins(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockGiftRepo := new(MockGiftRepository)
	mockTxnRepo := new(MockTransactionRepository)

	mockUoW.SetRepositories(mockUserRepo, nil, mockGiftRepo, mockTxnRepo)

	service := NewGiftService(mockFactory)

	sender := &models.User{ID: "u1", Username: "alice", Coins: 3}
	gift := &models.Gift{ID: "g1", Name: "Rose", Cost: 5}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	// No Commit expected; the debit failure rolls everything back

	mockUserRepo.On("GetByID", ctx, "u1").Return(sender, nil)
	mockGiftRepo.On("GetByID", ctx, "g1").Return(gift, nil)
	mockUserRepo.On("DeductCoins", ctx, "u1", int64(5)).Return(ErrInsufficientCoins)

	receipt, err := service.SendGift(ctx, "u1", "main", "g1")

	assert.True(t, errors.Is(err, ErrInsufficientCoins))
	assert.Nil(t, receipt)
	assert.Empty(t, mockUoW.Published)

	mockUoW.AssertExpectations(t)
	mockTxnRepo.AssertNotCalled(t, "Record")
}

func TestGiftService_SendGift_UnknownGift(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockGiftRepo := new(MockGiftRepository)
	mockTxnRepo := new(MockTransactionRepository)

	mockUoW.SetRepositories(mockUserRepo, nil, mockGiftRepo, mockTxnRepo)

	service := NewGiftService(mockFactory)

	sender := &models.User{ID: "u1", Username: "alice", Coins: 100}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByID", ctx, "u1").Return(sender, nil)
	mockGiftRepo.On("GetByID", ctx, "g99").Return(nil, nil)

	receipt, err := service.SendGift(ctx, "u1", "main", "g99")

	assert.True(t, errors.Is(err, ErrGiftNotFound))
	assert.Nil(t, receipt)

	mockUserRepo.AssertNotCalled(t, "DeductCoins")
	mockTxnRepo.AssertNotCalled(t, "Record")
}

func TestGiftService_SendGift_BannedSender(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockGiftRepo := new(MockGiftRepository)
	mockTxnRepo := new(MockTransactionRepository)

	mockUoW.SetRepositories(mockUserRepo, nil, mockGiftRepo, mockTxnRepo)

	service := NewGiftService(mockFactory)

	banned := &models.User{ID: "u1", Username: "alice", Coins: 100, Banned: true}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByID", ctx, "u1").Return(banned, nil)

	receipt, err := service.SendGift(ctx, "u1", "main", "g1")

	assert.True(t, errors.Is(err, ErrBanned))
	assert.Nil(t, receipt)

	// The ban check comes from storage, before any money moves
	mockGiftRepo.AssertNotCalled(t, "GetByID")
	mockUserRepo.AssertNotCalled(t, "DeductCoins")
}

func TestGiftService_SendGift_RecordFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockGiftRepo := new(MockGiftRepository)
	mockTxnRepo := new(MockTransactionRepository)

	mockUoW.SetRepositories(mockUserRepo, nil, mockGiftRepo, mockTxnRepo)

	service := NewGiftService(mockFactory)

	sender := &models.User{ID: "u1", Username: "alice", Coins: 100}
	gift := &models.Gift{ID: "g3", Name: "Diamond", Cost: 100}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	// No Commit: a failed audit record must take the debit down with it

	mockUserRepo.On("GetByID", ctx, "u1").Return(sender, nil)
	mockGiftRepo.On("GetByID", ctx, "g3").Return(gift, nil)
	mockUserRepo.On("DeductCoins", ctx, "u1", int64(100)).Return(nil)
	mockTxnRepo.On("Record", ctx, mock.Anything).Return(errors.New("disk full"))

	receipt, err := service.SendGift(ctx, "u1", "main", "g3")

	assert.Error(t, err)
	assert.Nil(t, receipt)
	assert.Contains(t, err.Error(), "failed to record transaction")
	assert.Empty(t, mockUoW.Published)

	mockUoW.AssertExpectations(t)
}

func TestGiftService_SendGift_UnknownSender(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockGiftRepo := new(MockGiftRepository)
	mockTxnRepo := new(MockTransactionRepository)

	mockUoW.SetRepositories(mockUserRepo, nil, mockGiftRepo, mockTxnRepo)

	service := NewGiftService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByID", ctx, "ghost").Return(nil, nil)

	receipt, err := service.SendGift(ctx, "ghost", "main", "g1")

	assert.True(t, errors.Is(err, ErrUserNotFound))
	assert.Nil(t, receipt)
}

func TestGiftService_ListGifts(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGiftRepo := new(MockGiftRepository)

	mockUoW.SetRepositories(nil, nil, mockGiftRepo, nil)

	service := NewGiftService(mockFactory)

	catalog := []*models.Gift{
		{ID: "g1", Name: "Rose", Cost: 5},
		{ID: "g2", Name: "Heart", Cost: 20},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockGiftRepo.On("List", ctx).Return(catalog, nil)

	gifts, err := service.ListGifts(ctx)

	require.NoError(t, err)
	assert.Equal(t, catalog, gifts)
}
