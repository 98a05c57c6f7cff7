package repository

import (
	"context"
	"fmt"

	"kinsluv/database"
	"kinsluv/models"
)

// TransactionRepository implements the service.TransactionRepository
// interface. The table is append-only; there is no update or delete path.
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record appends one transaction
func (r *TransactionRepository) Record(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, gift_id, room, time)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.Exec(ctx, query, txn.ID, txn.UserID, txn.GiftID, txn.Room, txn.Time)
	if err != nil {
		return fmt.Errorf("failed to record transaction %s: %w", txn.ID, err)
	}

	return nil
}

// ListDetailed returns recent transactions joined with sender and gift
// reference data, newest first
func (r *TransactionRepository) ListDetailed(ctx context.Context, limit int) ([]*models.TransactionDetail, error) {
	query := `
		SELECT t.id, t.user_id, t.gift_id, t.room, t.time,
		       COALESCE(u.username, ''), COALESCE(g.name, ''), COALESCE(g.cost, 0)
		FROM transactions t
		LEFT JOIN users u ON u.id = t.user_id
		LEFT JOIN gifts g ON g.id = t.gift_id
		ORDER BY t.time DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var details []*models.TransactionDetail
	for rows.Next() {
		var d models.TransactionDetail
		err := rows.Scan(&d.ID, &d.UserID, &d.GiftID, &d.Room, &d.Time, &d.Username, &d.GiftName, &d.GiftCost)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		details = append(details, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return details, nil
}

// Count returns the total number of recorded transactions
func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
