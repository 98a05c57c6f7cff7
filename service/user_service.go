package service

import (
	"context"
	"fmt"

	"kinsluv/config"
	"kinsluv/events"
	"kinsluv/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// PasswordHasher abstracts bcrypt so tests can avoid its cost.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
}

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
	issuer     TokenIssuer
	hasher     PasswordHasher
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, issuer TokenIssuer, hasher PasswordHasher) UserService {
	return &userService{
		uowFactory: uowFactory,
		issuer:     issuer,
		hasher:     hasher,
	}
}

// GetUser retrieves a user by id, or nil if absent
func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// GetOrCreateUser retrieves an existing user or creates one with the
// starting balance. This backs the anonymous id+username join fallback.
func (s *userService) GetOrCreateUser(ctx context.Context, id, username string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if user == nil {
		user, err = uow.UserRepository().Create(ctx, id, username, nil, models.RoleViewer, config.Get().StartingCoins)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// Register creates an account and returns it with a signed token
func (s *userService) Register(ctx context.Context, username, password, role string) (*models.User, string, error) {
	if username == "" {
		return nil, "", fmt.Errorf("username required")
	}
	if role == "" {
		role = models.RoleViewer
	}

	var passwordHash *string
	if password != "" {
		hash, err := s.hasher.HashPassword(password)
		if err != nil {
			return nil, "", fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = &hash
	}

	id := uuid.NewString()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().Create(ctx, id, username, passwordHash, role, config.Get().StartingCoins)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	// Create is create-or-fetch; getting back a different id means the
	// username already belongs to someone else.
	if user.ID != id {
		return nil, "", fmt.Errorf("register %q: %w", username, ErrUsernameTaken)
	}

	if err := uow.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	token, err := s.issuer.IssueToken(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	log.WithFields(log.Fields{
		"userId":   user.ID,
		"username": user.Username,
		"role":     user.Role,
	}).Info("User registered")

	return user, token, nil
}

// Login verifies a password and returns the user with a signed token
func (s *userService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auth, err := uow.UserRepository().GetAuthByName(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get auth record: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	if auth == nil || auth.PasswordHash == nil {
		return nil, "", ErrInvalidCredentials
	}
	if !s.hasher.CheckPassword(*auth.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issuer.IssueToken(auth.ID, auth.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	user := auth.User
	return &user, token, nil
}

// TopUp credits coins to the calling user
func (s *userService) TopUp(ctx context.Context, userID string, amount int64) (*models.User, error) {
	return s.credit(ctx, userID, amount)
}

// GrantCoins credits coins from the admin panel
func (s *userService) GrantCoins(ctx context.Context, userID string, amount int64) (*models.User, error) {
	user, err := s.credit(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userId": userID,
		"amount": amount,
		"coins":  user.Coins,
	}).Info("Admin coin grant")

	return user, nil
}

func (s *userService) credit(ctx context.Context, userID string, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.UserRepository().AddCoins(ctx, userID, amount); err != nil {
		return nil, fmt.Errorf("failed to add coins: %w", err)
	}

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	uow.Publish(events.CoinsGrantedEvent{
		UserID:   userID,
		Amount:   amount,
		NewCoins: user.Coins,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// SetBanned bans or unbans a user and publishes the change
func (s *userService) SetBanned(ctx context.Context, userID string, banned bool) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().SetBanned(ctx, userID, banned)
	if err != nil {
		return nil, fmt.Errorf("failed to set banned flag: %w", err)
	}

	uow.Publish(events.UserBannedEvent{
		UserID:   user.ID,
		Username: user.Username,
		Banned:   banned,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userId":   user.ID,
		"username": user.Username,
		"banned":   banned,
	}).Info("Ban state changed")

	return user, nil
}

// ListUsers returns all users for the admin panel
func (s *userService) ListUsers(ctx context.Context) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return users, nil
}
