package engine

import (
	"time"

	"spotit/pkg/config"
)

// checkRestartTimersLocked lazily advances the restart state machine based on
// the wall clock, so no preemptive timers are needed. Called at the start of
// Join, the click, Shuffle, Rotate and restart methods, RestartStatus and
// ViewFor; Snapshot, LoadSnapshot and the small accessors do not call it.
func (g *Game) checkRestartTimersLocked(now time.Time) {
	r := &g.restart

	if !r.InitiatorClearAt.IsZero() && !now.Before(r.InitiatorClearAt) {
		r.Initiator = ""
		r.InitiatorClearAt = time.Time{}
	}

	switch r.Phase {
	case RestartCommitting:
		if !r.CommitFired && !now.Before(r.CommitAt.Add(config.RestartCommitDelay)) {
			g.commitRestartLocked()
			r.CommitFired = true
			r.HoldUntil = now.Add(config.RestartInProgressHold)
		} else if r.CommitFired && !now.Before(r.HoldUntil) {
			r.Phase = RestartCooldown
			r.InProgress = false
			r.CooldownUntil = now.Add(config.RestartCommitCooldown)
			r.Votes = make(map[string]struct{})
			r.Requesters = make(map[string]struct{})
			r.VoteCount = 0
			r.Initiator = ""
			r.CommitFired = false
		}
	case RestartCooldown:
		if !now.Before(r.CooldownUntil) {
			r.Phase = RestartIdle
			r.CooldownUntil = time.Time{}
			r.DeclinedBy = ""
		}
	}
}

// commitRestartLocked performs the restart commit: reset scores, regenerate
// and redeal the deck, and re-run the join-completion logic with the
// existing seated players.
func (g *Game) commitRestartLocked() {
	for name := range g.scores {
		g.scores[name] = 0
	}
	g.startLocked()
	g.record("restart_committed", nil)
}

// RequestRestart casts the caller's restart vote, opening a voting round
// from idle and committing once the vote is unanimous.
func (g *Game) RequestRestart(sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	g.checkRestartTimersLocked(now)

	name, ok := g.sessionToName[sessionID]
	if !ok {
		return ErrInvalidRequest
	}
	r := &g.restart

	if r.InProgress || (r.Phase == RestartCooldown && now.Before(r.CooldownUntil)) {
		remaining := time.Duration(0)
		if now.Before(r.CooldownUntil) {
			remaining = r.CooldownUntil.Sub(now)
		}
		return &RestartThrottledError{Remaining: remaining}
	}

	switch r.Phase {
	case RestartIdle:
		r.Phase = RestartVoting
		r.Initiator = name
		r.Votes = map[string]struct{}{sessionID: {}}
		r.Requesters = map[string]struct{}{name: {}}
		r.VoteCount = 1
	case RestartVoting:
		r.Votes[sessionID] = struct{}{}
		r.Requesters[name] = struct{}{}
		r.VoteCount = len(r.Votes)
		if len(r.Votes) >= len(g.players) {
			r.Phase = RestartCommitting
			r.InProgress = true
			r.CommitAt = now
			r.CommitFired = false
		}
	default:
		return ErrInvalidRequest
	}
	g.record("restart_requested", map[string]any{"name": name, "votes": r.VoteCount})
	g.touch()
	return nil
}

// DeclineRestart vetoes an open voting round: votes are cleared and a
// cooldown starts.
func (g *Game) DeclineRestart(sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	g.checkRestartTimersLocked(now)

	name, ok := g.sessionToName[sessionID]
	if !ok {
		return ErrInvalidRequest
	}
	r := &g.restart
	if r.Phase != RestartVoting {
		return ErrInvalidRequest
	}

	r.Votes = make(map[string]struct{})
	r.Requesters = make(map[string]struct{})
	r.VoteCount = 0
	r.Phase = RestartCooldown
	r.CooldownUntil = now.Add(config.RestartDeclineCooldown)
	r.InitiatorClearAt = now.Add(config.RestartInitiatorClear)
	r.DeclinedBy = name

	g.record("restart_declined", map[string]any{"by": name})
	g.touch()
	return nil
}

// RestartStatus is a read-only view of the restart state machine, surfaced
// through poll-game-state.
type RestartStatus struct {
	Phase             RestartPhase
	VoteCount         int
	ExpectedVotes     int
	Initiator         string
	DeclinedBy        string
	InProgress        bool
	CooldownRemaining time.Duration
}

// RestartStatus returns the current restart machine view after advancing any
// due timers.
func (g *Game) RestartStatus() RestartStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	g.checkRestartTimersLocked(now)

	remaining := time.Duration(0)
	if now.Before(g.restart.CooldownUntil) {
		remaining = g.restart.CooldownUntil.Sub(now)
	}
	return RestartStatus{
		Phase:             g.restart.Phase,
		VoteCount:         g.restart.VoteCount,
		ExpectedVotes:     len(g.players),
		Initiator:         g.restart.Initiator,
		DeclinedBy:        g.restart.DeclinedBy,
		InProgress:        g.restart.InProgress,
		CooldownRemaining: remaining,
	}
}
