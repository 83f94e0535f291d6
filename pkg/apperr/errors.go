package apperr

import "errors"

// Business-rule and lookup errors surfaced by the service layer. Handlers map
// these to HTTP statuses; anything not listed here becomes a 500.
var (
	// ErrInvalidAmount is returned when an amount is zero, negative or unparsable
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when a wallet's sendable balance cannot cover a transfer
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer is returned when sender and recipient are the same user
	ErrSelfTransfer = errors.New("cannot send tokens to yourself")

	// ErrSameBucket is returned when an exchange names the same bucket on both sides
	ErrSameBucket = errors.New("exchange buckets must differ")

	// ErrUserNotFound is returned when the requested user doesn't exist
	ErrUserNotFound = errors.New("user not found")

	// ErrWalletNotFound is returned when a user has no wallet record
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTaskNotFound is returned when the requested task or achievement doesn't exist
	ErrTaskNotFound = errors.New("task not found")

	// ErrSessionNotFound is returned when a user has no active mining session
	ErrSessionNotFound = errors.New("no active mining session")

	// ErrNotCompleted is returned when a reward is claimed before progress reached the target
	ErrNotCompleted = errors.New("not completed yet")

	// ErrAlreadyClaimed is returned on a second claim of the same reward
	ErrAlreadyClaimed = errors.New("reward already claimed")

	// ErrMiningActive is returned when starting a session while one is already running
	ErrMiningActive = errors.New("mining session already active")

	// ErrEmailTaken is returned when registering with an email that already has an account
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken is returned when registering with a username that already has an account
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when a refresh token is unknown, revoked or expired
	ErrInvalidToken = errors.New("invalid or expired token")
)
