package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"kinsluv/events"
	"kinsluv/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitPersistsAndFlushesEvents(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()

	var mu sync.Mutex
	var delivered []events.Event
	seen := make(chan struct{}, 1)
	bus.Subscribe(events.EventTypeCoinsGranted, func(_ context.Context, e events.Event) {
		mu.Lock()
		delivered = append(delivered, e)
		mu.Unlock()
		seen <- struct{}{}
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)

	u := testutil.NewTestUser("alice")

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.UserRepository().Create(ctx, u.ID, u.Username, nil, u.Role, u.Coins)
	require.NoError(t, err)
	require.NoError(t, uow.UserRepository().AddCoins(ctx, u.ID, 50))

	uow.Publish(events.CoinsGrantedEvent{UserID: u.ID, Amount: 50, NewCoins: 150})

	// Nothing is visible or emitted before commit
	outside := NewUserRepository(testDB.DB)
	pre, err := outside.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, pre)

	require.NoError(t, uow.Commit())

	post, err := outside.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, int64(150), post.Coins)

	select {
	case <-seen:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not flushed after commit")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
}

func TestUnitOfWork_RollbackDiscardsEverything(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	fired := make(chan struct{}, 1)
	bus.Subscribe(events.EventTypeCoinsGranted, func(context.Context, events.Event) {
		fired <- struct{}{}
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)

	u := testutil.NewTestUser("bob")

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.UserRepository().Create(ctx, u.ID, u.Username, nil, u.Role, u.Coins)
	require.NoError(t, err)
	uow.Publish(events.CoinsGrantedEvent{UserID: u.ID, Amount: 50})

	require.NoError(t, uow.Rollback())

	outside := NewUserRepository(testDB.DB)
	user, err := outside.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, user)

	select {
	case <-fired:
		t.Fatal("event escaped a rolled-back unit of work")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUnitOfWork_RollbackAfterCommitIsNoop(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	u := testutil.NewTestUser("carol")
	_, err := uow.UserRepository().Create(ctx, u.ID, u.Username, nil, u.Role, u.Coins)
	require.NoError(t, err)

	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback())

	user, err := NewUserRepository(testDB.DB).GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, user)
}
