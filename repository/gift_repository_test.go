package repository

import (
	"context"
	"testing"

	"kinsluv/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGiftRepository_List(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGiftRepository(testDB.DB)
	ctx := context.Background()

	gifts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, gifts, 3)

	// Seeded catalog, cheapest first
	assert.Equal(t, "Rose", gifts[0].Name)
	assert.Equal(t, int64(5), gifts[0].Cost)
	assert.Equal(t, "Heart", gifts[1].Name)
	assert.Equal(t, int64(20), gifts[1].Cost)
	assert.Equal(t, "Diamond", gifts[2].Name)
	assert.Equal(t, int64(100), gifts[2].Cost)
}

func TestGiftRepository_GetByID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGiftRepository(testDB.DB)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		gift, err := repo.GetByID(ctx, "g2")
		require.NoError(t, err)
		require.NotNil(t, gift)
		assert.Equal(t, "Heart", gift.Name)
		assert.Equal(t, int64(20), gift.Cost)
	})

	t.Run("unknown id returns nil", func(t *testing.T) {
		gift, err := repo.GetByID(ctx, "g99")
		require.NoError(t, err)
		assert.Nil(t, gift)
	})
}
