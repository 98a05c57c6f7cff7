package service

import "errors"

// Sentinel errors for the failure taxonomy. Handlers map these to targeted
// client frames; anything else is treated as an internal persistence failure.
var (
	// ErrAuthRequired means a join carried neither a valid token nor an
	// id+username fallback.
	ErrAuthRequired = errors.New("auth required")

	// ErrInvalidCredentials covers bad username/password pairs on login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound means the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrBanned means the user is banned; every gated action re-checks this
	// against storage, not the session snapshot.
	ErrBanned = errors.New("user is banned")

	// ErrGiftNotFound means the gift id resolves to no catalog entry.
	ErrGiftNotFound = errors.New("gift not found")

	// ErrInsufficientCoins means the conditional debit matched no row: the
	// sender's live balance is below the gift cost.
	ErrInsufficientCoins = errors.New("not enough coins")

	// ErrUsernameTaken means a register hit the unique username constraint.
	ErrUsernameTaken = errors.New("username already taken")
)
