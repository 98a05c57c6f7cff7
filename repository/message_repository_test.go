package repository

import (
	"context"
	"fmt"
	"testing"

	"kinsluv/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_SaveAndRecent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMessageRepository(testDB.DB)
	ctx := context.Background()

	sender := testutil.NewTestUser("chatter")

	t.Run("empty room", func(t *testing.T) {
		messages, err := repo.Recent(ctx, "main", 100)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("oldest first", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			msg := testutil.NewTestMessage(sender, "main", fmt.Sprintf("line %d", i))
			msg.Time = int64(1000 + i)
			require.NoError(t, repo.Save(ctx, msg))
		}

		messages, err := repo.Recent(ctx, "main", 100)
		require.NoError(t, err)
		require.Len(t, messages, 5)

		assert.Equal(t, "line 0", messages[0].Text)
		assert.Equal(t, "line 4", messages[4].Text)
	})

	t.Run("limit keeps the newest", func(t *testing.T) {
		messages, err := repo.Recent(ctx, "main", 2)
		require.NoError(t, err)
		require.Len(t, messages, 2)

		// Still oldest first within the window
		assert.Equal(t, "line 3", messages[0].Text)
		assert.Equal(t, "line 4", messages[1].Text)
	})

	t.Run("rooms are isolated", func(t *testing.T) {
		msg := testutil.NewTestMessage(sender, "vip", "hello vip")
		require.NoError(t, repo.Save(ctx, msg))

		vip, err := repo.Recent(ctx, "vip", 100)
		require.NoError(t, err)
		require.Len(t, vip, 1)
		assert.Equal(t, "hello vip", vip[0].Text)

		main, err := repo.Recent(ctx, "main", 100)
		require.NoError(t, err)
		assert.Len(t, main, 5)
	})
}

func TestMessageRepository_Delete(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMessageRepository(testDB.DB)
	ctx := context.Background()

	sender := testutil.NewTestUser("chatter")
	msg := testutil.NewTestMessage(sender, "main", "delete me")
	require.NoError(t, repo.Save(ctx, msg))

	require.NoError(t, repo.Delete(ctx, msg.ID))

	messages, err := repo.Recent(ctx, "main", 100)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Deleting an already-deleted id is a no-op
	assert.NoError(t, repo.Delete(ctx, msg.ID))
}

func TestMessageRepository_Count(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMessageRepository(testDB.DB)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	sender := testutil.NewTestUser("chatter")
	require.NoError(t, repo.Save(ctx, testutil.NewTestMessage(sender, "main", "one")))
	require.NoError(t, repo.Save(ctx, testutil.NewTestMessage(sender, "vip", "two")))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
