package strike

import "errors"

// Service errors
var (
	ErrInvalidOffense = errors.New("unknown offense for role")
	ErrInvalidLevel   = errors.New("offense level out of range")
)
