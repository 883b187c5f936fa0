package services

import "errors"

// Sentinel errors shared across services and mapped to HTTP in handlers.
var (
	// Not found
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrMatchNotFound       = errors.New("match not found")

	// Validation
	ErrValidationFailed          = errors.New("validation failed")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrTournamentInvalidFormat   = errors.New("invalid tournament format")
	ErrTournamentInvalidCapacity = errors.New("tournament max participants must be at least 2")
	ErrTournamentInvalidEntryFee = errors.New("tournament entry fee cannot be negative")
	ErrTournamentInvalidStart    = errors.New("tournament start time must be in the future")
	ErrPrizeInvalid              = errors.New("invalid prize configuration")
	ErrPrizeExceedsPool          = errors.New("configured prize amounts exceed the prize pool")
	ErrMatchInvalidWinner        = errors.New("winner must be one of the match players")

	// State conflicts
	ErrRegistrationClosed      = errors.New("tournament registration is not open")
	ErrTournamentNotInProgress = errors.New("tournament is not in progress")
	ErrTournamentNotCancelable = errors.New("tournament can only be cancelled before it starts")
	ErrMatchAlreadyCompleted   = errors.New("match result already recorded")
	ErrMatchCancelled          = errors.New("match was cancelled")

	// Capacity and funds
	ErrTournamentFull    = errors.New("tournament registration is full")
	ErrAlreadyRegistered = errors.New("user is already registered for this tournament")
	ErrInsufficientFunds = errors.New("insufficient funds for entry fee")
	ErrNotEnoughPlayers  = errors.New("at least 2 participants are required to start")

	// Concurrency conflicts: the operation lost an atomic transition race.
	// Callers treat these as "already handled elsewhere", not as retryable.
	ErrTournamentAlreadyStarted = errors.New("tournament start already handled")
	ErrRoundAlreadyAdvanced     = errors.New("round advancement already handled")

	// Authorization
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
)
