package roster

import (
	"errors"
	"fmt"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUnknownGroup       = errors.New("unknown group")
	ErrUnknownTeam        = errors.New("unknown team")
	ErrInvalidPlayer      = errors.New("invalid player")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrPlayerOnActiveTeam = errors.New("player is on an active team")
)

// InsufficientFundsError carries the numbers behind a rejected purchase.
type InsufficientFundsError struct {
	Team     Group
	Balance  float64
	Required float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s: balance %.0f, required %.0f", e.Team, e.Balance, e.Required)
}

// Is makes errors.Is(err, ErrInsufficientFunds) match.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
