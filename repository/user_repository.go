package repository

import (
	"context"
	"fmt"

	"kinsluv/database"
	"kinsluv/models"
	"kinsluv/service"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, username, role, coins, banned, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Role,
		&user.Coins,
		&user.Banned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a user if the id is free and returns the stored record.
// Matches the create-or-fetch semantics of the anonymous join path: an
// existing id or username wins and the insert is silently skipped.
func (r *UserRepository) Create(ctx context.Context, id, username string, passwordHash *string, role string, initialCoins int64) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, password_hash, role, coins)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, id, username, passwordHash, role, initialCoins); err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}

	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	// The id insert lost to an existing username; return that record.
	user, err = r.GetByName(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, service.ErrUsernameTaken)
	}
	return user, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id %s: %w", id, err)
	}
	return user, nil
}

// GetByName retrieves a user by display name
func (r *UserRepository) GetByName(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by name %q: %w", username, err)
	}
	return user, nil
}

// GetAuthByName retrieves a user including the password hash
func (r *UserRepository) GetAuthByName(ctx context.Context, username string) (*models.UserAuth, error) {
	query := `
		SELECT id, username, role, coins, banned, created_at, updated_at, password_hash
		FROM users
		WHERE username = $1
	`

	var auth models.UserAuth
	err := r.q.QueryRow(ctx, query, username).Scan(
		&auth.ID,
		&auth.Username,
		&auth.Role,
		&auth.Coins,
		&auth.Banned,
		&auth.CreatedAt,
		&auth.UpdatedAt,
		&auth.PasswordHash,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auth record for %q: %w", username, err)
	}
	return &auth, nil
}

// AddCoins credits amount to a user's balance atomically
func (r *UserRepository) AddCoins(ctx context.Context, id string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET coins = coins + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to add coins for user %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("add coins for user %s: %w", id, service.ErrUserNotFound)
	}

	return nil
}

// DeductCoins debits amount from a user's balance atomically, failing if the
// live balance does not cover it. The balance check and the debit are one
// statement, so two concurrent sends can never both spend the same coins.
func (r *UserRepository) DeductCoins(ctx context.Context, id string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET coins = coins - $1, updated_at = NOW()
		WHERE id = $2
		  AND coins >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to deduct coins for user %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing user from an insufficient balance
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("deduct coins for user %s: %w", id, service.ErrUserNotFound)
		}
		return fmt.Errorf("have %d, need %d: %w", user.Coins, amount, service.ErrInsufficientCoins)
	}

	return nil
}

// SetBanned flips the banned flag and returns the updated record
func (r *UserRepository) SetBanned(ctx context.Context, id string, banned bool) (*models.User, error) {
	query := `
		UPDATE users
		SET banned = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, banned, id))
	if err != nil {
		return nil, fmt.Errorf("failed to set banned=%t for user %s: %w", banned, id, err)
	}
	if user == nil {
		return nil, fmt.Errorf("set banned for user %s: %w", id, service.ErrUserNotFound)
	}
	return user, nil
}

// GetAll returns all users ordered by username
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Role,
			&user.Coins,
			&user.Banned,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// Count returns the number of registered users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
