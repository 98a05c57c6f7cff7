package service

import (
	"context"

	"kinsluv/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a user if the id is free and returns the stored record.
	// An existing id or username returns the existing record untouched.
	Create(ctx context.Context, id, username string, passwordHash *string, role string, initialCoins int64) (*models.User, error)

	// GetByID retrieves a user by id, or nil if absent
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByName retrieves a user by display name, or nil if absent
	GetByName(ctx context.Context, username string) (*models.User, error)

	// GetAuthByName retrieves a user including the password hash, or nil if absent
	GetAuthByName(ctx context.Context, username string) (*models.UserAuth, error)

	// AddCoins credits amount to a user's balance atomically
	AddCoins(ctx context.Context, id string, amount int64) error

	// DeductCoins debits amount atomically, failing with ErrInsufficientCoins
	// unless the live balance covers it. The balance check and the debit are
	// a single statement, so concurrent sends cannot both spend the same coins.
	DeductCoins(ctx context.Context, id string, amount int64) error

	// SetBanned flips the banned flag and returns the updated record
	SetBanned(ctx context.Context, id string, banned bool) (*models.User, error)

	// GetAll returns all users ordered by username
	GetAll(ctx context.Context) ([]*models.User, error)

	// Count returns the number of registered users
	Count(ctx context.Context) (int64, error)
}

// MessageRepository defines the interface for chat message persistence
type MessageRepository interface {
	// Save appends a message; messages are immutable once stored
	Save(ctx context.Context, msg *models.Message) error

	// Recent returns up to limit messages for a room, oldest first
	Recent(ctx context.Context, room string, limit int) ([]*models.Message, error)

	// Delete removes a message by id (admin moderation only)
	Delete(ctx context.Context, id string) error

	// Count returns the total number of stored messages
	Count(ctx context.Context) (int64, error)
}

// GiftRepository defines read access to the seeded gift catalog
type GiftRepository interface {
	// List returns the full catalog
	List(ctx context.Context) ([]*models.Gift, error)

	// GetByID retrieves a catalog entry, or nil if absent
	GetByID(ctx context.Context, id string) (*models.Gift, error)
}

// TransactionRepository defines the interface for the gift audit log
type TransactionRepository interface {
	// Record appends one transaction; rows are never updated or deleted
	Record(ctx context.Context, txn *models.Transaction) error

	// ListDetailed returns recent transactions joined with usernames and
	// gift details, newest first
	ListDetailed(ctx context.Context, limit int) ([]*models.TransactionDetail, error)

	// Count returns the total number of recorded transactions
	Count(ctx context.Context) (int64, error)
}

// Event mirrors events.Event so services can publish without importing the
// events package directly.
type Event interface {
	EventType() string
}

// UnitOfWork represents one database transaction spanning multiple
// repositories, with events stashed until commit
type UnitOfWork interface {
	// Begin starts the transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events.
	// No-op if already committed.
	Rollback() error

	// UserRepository returns the user repository bound to this transaction
	UserRepository() UserRepository

	// MessageRepository returns the message repository bound to this transaction
	MessageRepository() MessageRepository

	// GiftRepository returns the gift repository bound to this transaction
	GiftRepository() GiftRepository

	// TransactionRepository returns the audit log repository bound to this transaction
	TransactionRepository() TransactionRepository

	// Publish stashes an event to be emitted after a successful commit
	Publish(event Event)
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// TokenIssuer mints the bearer credential handed out on register and login
type TokenIssuer interface {
	IssueToken(userID, username string) (string, error)
}

// UserService defines account and balance operations
type UserService interface {
	// GetUser retrieves a user by id, or nil if absent. The token join path
	// uses this: a valid credential for a deleted user still fails the join.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// GetOrCreateUser resolves the anonymous id+username join fallback:
	// fetch the user, or create one with the starting balance
	GetOrCreateUser(ctx context.Context, id, username string) (*models.User, error)

	// Register creates an account and returns it with a signed token
	Register(ctx context.Context, username, password, role string) (*models.User, string, error)

	// Login verifies a password and returns the user with a signed token
	Login(ctx context.Context, username, password string) (*models.User, string, error)

	// TopUp credits coins to the calling user (demo self-service path)
	TopUp(ctx context.Context, userID string, amount int64) (*models.User, error)

	// GrantCoins credits coins from the admin panel
	GrantCoins(ctx context.Context, userID string, amount int64) (*models.User, error)

	// SetBanned bans or unbans a user and publishes the change
	SetBanned(ctx context.Context, userID string, banned bool) (*models.User, error)

	// ListUsers returns all users for the admin panel
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// MessageService defines chat message operations
type MessageService interface {
	// Post persists a message for a non-banned user and returns the stored
	// record. Nothing may be broadcast unless Post succeeds.
	Post(ctx context.Context, userID, room, text string) (*models.Message, error)

	// Recent returns room history, oldest first
	Recent(ctx context.Context, room string, limit int) ([]*models.Message, error)

	// Delete removes a message (admin moderation)
	Delete(ctx context.Context, id string) error
}

// GiftService defines the gift purchase flow and catalog reads
type GiftService interface {
	// SendGift validates and executes a gift purchase. Fresh ban check,
	// catalog lookup, atomic conditional debit, and audit record all run in
	// one database transaction. Returns the receipt to broadcast.
	SendGift(ctx context.Context, userID, room, giftID string) (*models.GiftReceipt, error)

	// ListGifts returns the catalog
	ListGifts(ctx context.Context) ([]*models.Gift, error)

	// ListTransactions returns the detailed audit log, newest first
	ListTransactions(ctx context.Context, limit int) ([]*models.TransactionDetail, error)
}

// StatsService exposes the aggregate counters
type StatsService interface {
	// Stats returns user, message, and gift-transaction counts
	Stats(ctx context.Context) (*models.Stats, error)
}
