package engine

import (
	"time"

	"spotit/internal/deck"
)

// PlayerView is the public-facing shape of one player, safe to hand to the
// front-end gateway for rendering (no session id exposed to other players).
type PlayerView struct {
	Name   string
	Status PlayerStatus
	Score  int
}

// View is a read-only snapshot of everything a single requesting session
// needs to render its screen: its own top card, every visible top card
// (including its own), the center head, and game-level status. Separate from
// State/Snapshot, which exist for replication, not per-request rendering.
type View struct {
	ExpectedPlayers int
	Started         bool
	Finished        bool
	Winner          string
	Players         []PlayerView
	MyTopCard       *deck.Card
	OtherTopCards   map[string]deck.Card // name -> top card, excludes caller
	CenterHead      *deck.Card
	CenterRemaining int
	Restart         RestartStatus
	LastUpdateTime  time.Time
}

// ViewFor builds a View for the given session (sessionID may be empty for a
// spectator/pre-join view).
func (g *Game) ViewFor(sessionID string) View {
	now := time.Now()
	g.mu.Lock()
	g.checkRestartTimersLocked(now)

	players := make([]PlayerView, len(g.players))
	for i, p := range g.players {
		players[i] = PlayerView{Name: p.Name, Status: p.Status, Score: g.scores[p.Name]}
	}

	myName := g.sessionToName[sessionID]
	var myTop *deck.Card
	others := make(map[string]deck.Card)
	for name, pile := range g.playerPiles {
		if len(pile) == 0 {
			continue
		}
		top := pile[len(pile)-1]
		if name == myName && myName != "" {
			myTop = &top
		} else {
			others[name] = top
		}
	}

	var centerHead *deck.Card
	if len(g.centerPile) > 0 {
		h := g.centerPile[0]
		centerHead = &h
	}

	v := View{
		ExpectedPlayers: g.expectedPlayers,
		Started:         g.started,
		Finished:        g.finished,
		Winner:          g.winner,
		Players:         players,
		MyTopCard:       myTop,
		OtherTopCards:   others,
		CenterHead:      centerHead,
		CenterRemaining: len(g.centerPile),
		LastUpdateTime:  g.lastUpdateTime,
	}
	g.mu.Unlock()

	v.Restart = g.RestartStatus()
	return v
}

// SessionName resolves a session id to a player name.
func (g *Game) SessionName(sessionID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.sessionToName[sessionID]
	return name, ok
}

// IsFinished reports whether the game has concluded.
func (g *Game) IsFinished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finished
}

// ExpectedPlayers returns the configured lobby size.
func (g *Game) ExpectedPlayers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expectedPlayers
}
