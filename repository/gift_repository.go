package repository

import (
	"context"
	"fmt"

	"kinsluv/database"
	"kinsluv/models"

	"github.com/jackc/pgx/v5"
)

// GiftRepository implements the service.GiftRepository interface. The gift
// table is seeded by migration and never written at runtime.
type GiftRepository struct {
	q queryable
}

// NewGiftRepository creates a new gift repository
func NewGiftRepository(db *database.DB) *GiftRepository {
	return &GiftRepository{q: db.Pool}
}

// newGiftRepositoryWithTx creates a new gift repository with a transaction
func newGiftRepositoryWithTx(tx queryable) *GiftRepository {
	return &GiftRepository{q: tx}
}

// List returns the full catalog
func (r *GiftRepository) List(ctx context.Context) ([]*models.Gift, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, cost FROM gifts ORDER BY cost`)
	if err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}
	defer rows.Close()

	var gifts []*models.Gift
	for rows.Next() {
		var gift models.Gift
		if err := rows.Scan(&gift.ID, &gift.Name, &gift.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, &gift)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gifts: %w", err)
	}

	return gifts, nil
}

// GetByID retrieves a catalog entry
func (r *GiftRepository) GetByID(ctx context.Context, id string) (*models.Gift, error) {
	var gift models.Gift
	err := r.q.QueryRow(ctx, `SELECT id, name, cost FROM gifts WHERE id = $1`, id).
		Scan(&gift.ID, &gift.Name, &gift.Cost)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift %s: %w", id, err)
	}
	return &gift, nil
}
