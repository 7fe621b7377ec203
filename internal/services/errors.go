package services

import "errors"

var (
	ErrPrizeNotFound       = errors.New("prize not found")
	ErrPrizeExhausted      = errors.New("prize has no remaining slots")
	ErrPoolEmpty           = errors.New("no eligible participants left in the pool")
	ErrInvalidCount        = errors.New("draw count must be at least 1")
	ErrDrawInProgress      = errors.New("a draw is already in progress")
	ErrNoActiveDraw        = errors.New("no draw in progress")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidInput        = errors.New("invalid input")
)
