package engine

import "errors"

// Sentinel rejection reasons. Commands wrap these with detail via fmt.Errorf("%w").
var (
	ErrGameOver         = errors.New("game is over")
	ErrWrongPhase       = errors.New("command not valid in current phase")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrCardNotInHand    = errors.New("card not in hand")
	ErrMeldNotFound     = errors.New("meld not found")
	ErrInvalidMeld      = errors.New("invalid meld")
	ErrContractNotMet   = errors.New("contract not met")
	ErrAlreadyDown      = errors.New("already laid down this round")
	ErrNotDown          = errors.New("must lay down before laying off")
	ErrInvalidJokerSwap = errors.New("invalid joker swap")
	ErrStockEmpty       = errors.New("no cards left to draw")
	ErrDiscardEmpty     = errors.New("no claimable discard")
	ErrMayINotAllowed   = errors.New("may-i not allowed")
	ErrNotPrompted      = errors.New("not prompted for may-i")
	ErrPlayerCount      = errors.New("invalid player count")
)

// CommandError records the last rejected command so clients can show why.
type CommandError struct {
	PlayerID string     `json:"playerId"`
	Action   ActionType `json:"action"`
	Message  string     `json:"message"`
}

func (e *CommandError) Error() string {
	return string(e.Action) + " by " + e.PlayerID + ": " + e.Message
}
