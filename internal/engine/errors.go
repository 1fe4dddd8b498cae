package engine

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for every policy rejection the engine can produce. The
// engine never panics across its public boundary; every public method that
// can fail returns one of these, a *RestartThrottledError, or nil.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNameTaken       = errors.New("name taken")
	ErrLobbyFull       = errors.New("lobby full")
	ErrNotActive       = errors.New("game not active")
	ErrGameOver        = errors.New("game over")
)

// RestartThrottledError carries the remaining cooldown so callers can surface
// it to players.
type RestartThrottledError struct {
	Remaining time.Duration
}

func (e *RestartThrottledError) Error() string {
	return fmt.Sprintf("restart throttled: %s remaining", e.Remaining)
}
