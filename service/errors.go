package service

import "errors"

// Validation errors
var (
	ErrAlreadyInitialized  = errors.New("user account already initialized")
	ErrNotInitialized      = errors.New("user account not initialized")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidLockIn       = errors.New("lock-in days must be greater than zero")
	ErrInvalidSchedule     = errors.New("market schedule must satisfy now < betting end <= task deadline")
	ErrInvalidFee          = errors.New("platform fee exceeds maximum")
	ErrSelfBetNotAllowed   = errors.New("cannot bet on a market about yourself")
	ErrAlreadyBet          = errors.New("bettor already has a bet on this market")
	ErrMarketExists        = errors.New("market already exists")
	ErrMarketNotFound      = errors.New("market not found")
	ErrBetNotFound         = errors.New("bet not found")
	ErrUnauthorized        = errors.New("signer is not allowed to perform this action")
	ErrTaskAlreadyRecorded = errors.New("task already recorded today")
	ErrNoPayout            = errors.New("bet has no payout")
	ErrAlreadyClaimed      = errors.New("payout already claimed")
)

// Temporal errors
var (
	ErrBettingWindowClosed = errors.New("betting window closed")
	ErrMarketNotYetClosed  = errors.New("market is still open for betting")
	ErrAlreadyClosed       = errors.New("market already closed")
	ErrAlreadySettled      = errors.New("market already settled")
	ErrMarketNotSettled    = errors.New("market not settled")
	ErrOutcomeNotYetKnown  = errors.New("task deadline not reached and no task recorded")
	ErrStillLocked         = errors.New("deposit is still locked")
	ErrNotLocked           = errors.New("deposit is no longer locked, use withdraw")
)

// Resource errors
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrVaultUnderfunded   = errors.New("vault underfunded")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// Storage errors surfaced by repositories
var (
	ErrAccountExists         = errors.New("account already exists")
	ErrTokenAccountNotFound  = errors.New("token account not found")
	ErrInsufficientBalance   = errors.New("token account balance too low")
	ErrBalanceOverflow       = errors.New("token account balance would overflow")
	ErrConservationViolation = errors.New("vault balance does not match deposits")
)

// Lookup errors
var (
	ErrAccountNotFound = errors.New("no account at address")
	ErrFaucetDisabled  = errors.New("faucet is disabled")
)
