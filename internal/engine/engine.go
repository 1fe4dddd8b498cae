// Package engine is the authoritative in-memory state machine for one Spot-It
// game: lobby and join flow, card piles, click adjudication, restart voting,
// and termination. Every operation serializes on one mutex; callers only ever
// see copies of internal state.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"spotit/internal/deck"
)

// Game is the single-owner authoritative state for one Spot-It game. Every
// field below is guarded by mu; callers only ever see copies returned from
// exported methods.
type Game struct {
	mu sync.Mutex

	expectedPlayers int
	serverStartTime time.Time
	lastUpdateTime  time.Time

	players       []Player          // ordered by join time
	sessionToName map[string]string // session id -> player name, built at join

	fullDeck    deck.Deck
	playerPiles map[string][]deck.Card // name -> pile, top = last element
	centerPile  []deck.Card             // FIFO, head = first element
	scores      map[string]int

	started  bool
	finished bool
	winner   string

	lastPlayerPick *pick
	lastCenterPick *pick

	restart RestartState

	history []HistoryEvent
}

// New constructs an empty, unstarted game expecting the given player count.
func New(expectedPlayers int) *Game {
	now := time.Now()
	return &Game{
		expectedPlayers: expectedPlayers,
		serverStartTime: now,
		lastUpdateTime:  now,
		sessionToName:   make(map[string]string),
		playerPiles:     make(map[string][]deck.Card),
		scores:          make(map[string]int),
		restart:         newRestartState(),
	}
}

func (g *Game) touch() { g.lastUpdateTime = time.Now() }

func (g *Game) record(eventType string, detail map[string]any) {
	g.history = append(g.history, HistoryEvent{Timestamp: time.Now(), EventType: eventType, Detail: detail})
	if len(g.history) > maxHistoryEvents {
		g.history = g.history[len(g.history)-maxHistoryEvents:]
	}
}

// indexByName reports the slice index of the named player, or -1.
func (g *Game) indexByName(name string) int {
	for i := range g.players {
		if g.players[i].Name == name {
			return i
		}
	}
	return -1
}

// Join seats a new player and starts the game once the lobby fills.
func (g *Game) Join(name string) (sessionID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkRestartTimersLocked(time.Now())

	if name == "" {
		return "", ErrInvalidRequest
	}
	if g.indexByName(name) >= 0 {
		return "", ErrNameTaken
	}
	if len(g.players) >= g.expectedPlayers {
		return "", ErrLobbyFull
	}

	sessionID = uuid.NewString()
	g.players = append(g.players, Player{
		Name:      name,
		Status:    StatusWaiting,
		JoinedAt:  time.Now(),
		SessionID: sessionID,
	})
	g.sessionToName[sessionID] = name
	g.scores[name] = 0
	g.record("join", map[string]any{"name": name})
	g.touch()

	if len(g.players) == g.expectedPlayers {
		g.startLocked()
	}
	return sessionID, nil
}

// startLocked transitions every player to active, deals a fresh shuffled
// deck, and marks the game started. Shared by the initial lobby-fill and by
// the restart commit step, which re-runs it with the existing players.
func (g *Game) startLocked() {
	for i := range g.players {
		g.players[i].Status = StatusActive
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	d := deck.Generate(rng)
	deck.Shuffle(d, rng)
	g.fullDeck = d

	g.playerPiles = make(map[string][]deck.Card, len(g.players))
	idx := 0
	for _, p := range g.players {
		g.playerPiles[p.Name] = []deck.Card{d[idx]}
		idx++
	}
	g.centerPile = append([]deck.Card{}, d[idx:]...)

	g.started = true
	g.finished = false
	g.winner = ""
	g.lastPlayerPick = nil
	g.lastCenterPick = nil
	g.record("game_started", map[string]any{"players": len(g.players)})
	g.touch()
}

// playerTopCardLocked returns the given player's visible card, or false if they
// have none (not seated, or pile empty).
func (g *Game) playerTopCardLocked(name string) (deck.Card, bool) {
	pile := g.playerPiles[name]
	if len(pile) == 0 {
		return deck.Card{}, false
	}
	return pile[len(pile)-1], true
}

func (g *Game) centerHeadLocked() (deck.Card, bool) {
	if len(g.centerPile) == 0 {
		return deck.Card{}, false
	}
	return g.centerPile[0], true
}

// ClickPlayerSymbol handles a click on the caller's own top card.
func (g *Game) ClickPlayerSymbol(sessionID string, symbol deck.Symbol) (ClickOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkRestartTimersLocked(time.Now())

	if g.finished {
		return ClickOutcome{}, ErrGameOver
	}
	name, ok := g.sessionToName[sessionID]
	if !ok || !g.started {
		return ClickOutcome{}, ErrInvalidRequest
	}
	card, ok := g.playerTopCardLocked(name)
	if !ok || !card.HasSymbol(symbol) {
		return ClickOutcome{}, ErrInvalidRequest
	}

	g.lastPlayerPick = &pick{SessionID: sessionID, Symbol: symbol}
	return g.adjudicateLocked(), nil
}

// ClickCenterSymbol handles a click on the center pile's head card.
func (g *Game) ClickCenterSymbol(sessionID string, symbol deck.Symbol) (ClickOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkRestartTimersLocked(time.Now())

	if g.finished {
		return ClickOutcome{}, ErrGameOver
	}
	_, ok := g.sessionToName[sessionID]
	if !ok || !g.started {
		return ClickOutcome{}, ErrInvalidRequest
	}
	card, ok := g.centerHeadLocked()
	if !ok || !card.HasSymbol(symbol) {
		return ClickOutcome{}, ErrInvalidRequest
	}

	g.lastCenterPick = &pick{SessionID: sessionID, Symbol: symbol}
	return g.adjudicateLocked(), nil
}

// adjudicateLocked resolves the pending picks: both set and equal is a
// match, both set and different clears them, one set alone is a highlight.
func (g *Game) adjudicateLocked() ClickOutcome {
	switch {
	case g.lastPlayerPick != nil && g.lastCenterPick != nil:
		pp, cp := g.lastPlayerPick, g.lastCenterPick
		g.lastPlayerPick, g.lastCenterPick = nil, nil

		if pp.Symbol != cp.Symbol {
			g.record("no_match", map[string]any{"a": int(pp.Symbol), "b": int(cp.Symbol)})
			g.touch()
			return ClickOutcome{Kind: OutcomeNoMatch, Symbol: pp.Symbol, OtherSymbol: cp.Symbol}
		}

		name := g.sessionToName[pp.SessionID]
		g.scores[name]++
		drawn := g.centerPile[0]
		g.centerPile = g.centerPile[1:]
		g.playerPiles[name] = append(g.playerPiles[name], drawn)
		g.record("match", map[string]any{"player": name, "symbol": int(pp.Symbol)})
		g.touch()

		out := ClickOutcome{
			Kind:          OutcomeMatch,
			Symbol:        pp.Symbol,
			ScoringPlayer: name,
			NewScore:      g.scores[name],
			PlayerTopCard: drawn,
		}
		if len(g.centerPile) == 0 {
			g.finishLocked()
			out.GameFinished = true
			out.Winner = g.winner
		} else {
			head, _ := g.centerHeadLocked()
			out.CenterHead = &head
		}
		return out

	default:
		g.touch()
		sym := symbol(g.lastPlayerPick, g.lastCenterPick)
		return ClickOutcome{Kind: OutcomeHighlight, Symbol: sym}
	}
}

func symbol(a, b *pick) deck.Symbol {
	if a != nil {
		return a.Symbol
	}
	if b != nil {
		return b.Symbol
	}
	return -1
}

// finishLocked ends the game: center pile empty, winner = argmax(scores),
// ties broken by earliest join.
func (g *Game) finishLocked() {
	g.finished = true
	for i := range g.players {
		g.players[i].Status = StatusFinish
	}
	best := ""
	bestScore := -1
	for _, p := range g.players { // already ordered by join time
		s := g.scores[p.Name]
		if s > bestScore {
			bestScore = s
			best = p.Name
		}
	}
	g.winner = best
	g.record("game_finished", map[string]any{"winner": best})
}

// Shuffle permutes the center pile uniformly at random; player piles and
// scores are untouched.
func (g *Game) Shuffle() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkRestartTimersLocked(time.Now())

	if !g.started || g.finished {
		return ErrInvalidRequest
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	deck.Shuffle(deck.Deck(g.centerPile), rng)
	g.record("shuffle", nil)
	g.touch()
	return nil
}

// ringCW/ringCCW step a ring slot in [1..7] one position: cw maps s to
// (s mod 7)+1, ccw is its inverse.
func ringCW(s int) int {
	return (s % 7) + 1
}

func ringCCW(s int) int {
	if s == 1 {
		return 7
	}
	return s - 1
}

// Rotate rotates the caller's top card one ring step. The center slot (0)
// is invariant.
func (g *Game) Rotate(sessionID string, dir RotateDir) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkRestartTimersLocked(time.Now())

	if dir != RotateCW && dir != RotateCCW {
		return ErrInvalidRequest
	}
	name, ok := g.sessionToName[sessionID]
	if !ok || !g.started {
		return ErrInvalidRequest
	}
	pile := g.playerPiles[name]
	if len(pile) == 0 {
		return ErrInvalidRequest
	}
	top := &pile[len(pile)-1]

	const step = 360.0 / 7.0
	for i := range top.Placements {
		p := &top.Placements[i]
		if p.Slot == 0 {
			continue
		}
		if dir == RotateCW {
			p.Slot = ringCW(p.Slot)
			p.Rotation = normalizeDegrees(p.Rotation + step)
		} else {
			p.Slot = ringCCW(p.Slot)
			p.Rotation = normalizeDegrees(p.Rotation - step)
		}
	}
	g.touch()
	return nil
}

func normalizeDegrees(d float64) float64 {
	for d < 0 {
		d += 360
	}
	for d >= 360 {
		d -= 360
	}
	return d
}

// PlayerNames returns player names in join order, for read-only views.
func (g *Game) PlayerNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.players))
	for i, p := range g.players {
		out[i] = p.Name
	}
	return out
}

