package escrow

import "errors"

// Service errors
var (
	ErrAmountMismatch      = errors.New("paid amount does not match contract amount")
	ErrNotFunded           = errors.New("contract is not funded")
	ErrContractCancelled   = errors.New("contract has been cancelled")
	ErrContractCompleted   = errors.New("contract is already completed")
	ErrNotContractFinder   = errors.New("caller is not the contract's finder")
	ErrNotContractClient   = errors.New("caller is not the contract's client")
	ErrSubmissionNotOpen   = errors.New("submission is not awaiting review")
	ErrSubmissionActive    = errors.New("an active submission already exists")
	ErrInvalidDecision     = errors.New("invalid review decision")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient available balance")
)
