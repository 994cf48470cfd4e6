package repository

import "errors"

var (
	// ErrNotFound is returned by writes that target a missing row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("record conflicts with existing data")
	// ErrVersionConflict is returned when a compare-and-swap update lost the race.
	ErrVersionConflict = errors.New("record version changed")
	// ErrInvalidTransition is returned when a row is not in the state a write requires.
	ErrInvalidTransition = errors.New("invalid state transition")
)
