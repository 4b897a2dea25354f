package auctionerr

import "errors"

// Bid admission errors
var (
	ErrItemNotBiddable     = errors.New("item is not open for bidding")
	ErrBidTooLow           = errors.New("bid amount too low")
	ErrIncrementViolation  = errors.New("bid does not satisfy the minimum increment")
	ErrInsufficientDeposit = errors.New("insufficient available deposit")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
)

// Ledger errors
var (
	ErrInsufficientFunds       = errors.New("insufficient available funds")
	ErrInsufficientFrozenFunds = errors.New("insufficient frozen funds")
	ErrAccountFrozen           = errors.New("deposit account is frozen")
	ErrAccountNotFound         = errors.New("deposit account not found")
	ErrTransactionNotFound     = errors.New("deposit transaction not found")
	ErrTransactionNotPending   = errors.New("deposit transaction already reviewed")
)

// Lookup errors
var (
	ErrSessionNotFound = errors.New("auction session not found")
	ErrItemNotFound    = errors.New("auction item not found")
	ErrConfigNotFound  = errors.New("bid increment config not found")
	ErrOrderNotFound   = errors.New("auction order not found")
)

// Lifecycle and settlement errors
var (
	ErrAlreadySettled     = errors.New("item already settled")
	ErrSessionNotEnded    = errors.New("auction session has not ended")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrOrderStatusInvalid = errors.New("order status does not allow this operation")
	ErrConfigInUse        = errors.New("bid increment config is used by a live session")
	ErrInvalidRules       = errors.New("bid increment rules overlap or are malformed")
	ErrLockBusy           = errors.New("resource is busy, retry later")
)
