package reconciler

import "errors"

// Service errors
var (
	ErrPaymentNotSuccessful = errors.New("payment was not successful")
	ErrInvalidMetadata      = errors.New("invalid payment metadata")
	ErrInvalidSignature     = errors.New("webhook signature verification failed")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
)

// errAlreadyApplied short-circuits a transaction when the reference was
// already recorded. It never escapes the service; replays report success.
var errAlreadyApplied = errors.New("payment reference already applied")
