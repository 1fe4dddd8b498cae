package engine

import (
	"time"

	"spotit/internal/deck"
)

// Pick is the exported, serializable form of a pending highlight pick.
type Pick struct {
	SessionID string
	Symbol    deck.Symbol
}

// RestartSnapshot is the exported, serializable form of RestartState: the
// live struct keeps its vote/requester sets as maps for O(1) membership
// checks, but a snapshot only needs their contents.
type RestartSnapshot struct {
	Phase            RestartPhase
	VoteSessionIDs   []string
	RequesterNames   []string
	Initiator        string
	DeclinedBy       string
	InProgress       bool
	CooldownUntil    time.Time
	InitiatorClearAt time.Time
	CommitAt         time.Time
	CommitFired      bool
	HoldUntil        time.Time
}

// State is the full exported snapshot of a Game's internal state.
// internal/snapshot wraps this in the wire-level document schema; loading a
// State back fully reconstructs an equivalent Game.
type State struct {
	ExpectedPlayers int
	ServerStartTime time.Time
	LastUpdateTime  time.Time

	Players       []Player
	SessionToName map[string]string

	FullDeck    deck.Deck
	PlayerPiles map[string][]deck.Card
	CenterPile  []deck.Card
	Scores      map[string]int

	Started  bool
	Finished bool
	Winner   string

	LastPlayerPick *Pick
	LastCenterPick *Pick

	Restart RestartSnapshot

	History []HistoryEvent
}

// Snapshot produces a deep, serializable copy of the current engine state.
func (g *Game) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() State {
	players := make([]Player, len(g.players))
	copy(players, g.players)

	sessionToName := make(map[string]string, len(g.sessionToName))
	for k, v := range g.sessionToName {
		sessionToName[k] = v
	}

	piles := make(map[string][]deck.Card, len(g.playerPiles))
	for name, pile := range g.playerPiles {
		cp := make([]deck.Card, len(pile))
		copy(cp, pile)
		piles[name] = cp
	}

	scores := make(map[string]int, len(g.scores))
	for k, v := range g.scores {
		scores[k] = v
	}

	var lpp, lcp *Pick
	if g.lastPlayerPick != nil {
		p := Pick(*g.lastPlayerPick)
		lpp = &p
	}
	if g.lastCenterPick != nil {
		p := Pick(*g.lastCenterPick)
		lcp = &p
	}

	votes := make([]string, 0, len(g.restart.Votes))
	for v := range g.restart.Votes {
		votes = append(votes, v)
	}
	requesters := make([]string, 0, len(g.restart.Requesters))
	for r := range g.restart.Requesters {
		requesters = append(requesters, r)
	}

	history := make([]HistoryEvent, len(g.history))
	copy(history, g.history)

	return State{
		ExpectedPlayers: g.expectedPlayers,
		ServerStartTime: g.serverStartTime,
		LastUpdateTime:  g.lastUpdateTime,
		Players:         players,
		SessionToName:   sessionToName,
		FullDeck:        append(deck.Deck{}, g.fullDeck...),
		PlayerPiles:     piles,
		CenterPile:      append([]deck.Card{}, g.centerPile...),
		Scores:          scores,
		Started:         g.started,
		Finished:        g.finished,
		Winner:          g.winner,
		LastPlayerPick:  lpp,
		LastCenterPick:  lcp,
		Restart: RestartSnapshot{
			Phase:            g.restart.Phase,
			VoteSessionIDs:   votes,
			RequesterNames:   requesters,
			Initiator:        g.restart.Initiator,
			DeclinedBy:       g.restart.DeclinedBy,
			InProgress:       g.restart.InProgress,
			CooldownUntil:    g.restart.CooldownUntil,
			InitiatorClearAt: g.restart.InitiatorClearAt,
			CommitAt:         g.restart.CommitAt,
			CommitFired:      g.restart.CommitFired,
			HoldUntil:        g.restart.HoldUntil,
		},
		History: history,
	}
}

// LoadSnapshot fully replaces the engine's state.
func (g *Game) LoadSnapshot(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expectedPlayers = s.ExpectedPlayers
	g.serverStartTime = s.ServerStartTime
	g.lastUpdateTime = s.LastUpdateTime

	g.players = append([]Player{}, s.Players...)
	g.sessionToName = make(map[string]string, len(s.SessionToName))
	for k, v := range s.SessionToName {
		g.sessionToName[k] = v
	}

	g.fullDeck = append(deck.Deck{}, s.FullDeck...)
	g.playerPiles = make(map[string][]deck.Card, len(s.PlayerPiles))
	for name, pile := range s.PlayerPiles {
		g.playerPiles[name] = append([]deck.Card{}, pile...)
	}
	g.centerPile = append([]deck.Card{}, s.CenterPile...)
	g.scores = make(map[string]int, len(s.Scores))
	for k, v := range s.Scores {
		g.scores[k] = v
	}

	g.started = s.Started
	g.finished = s.Finished
	g.winner = s.Winner

	if s.LastPlayerPick != nil {
		p := pick(*s.LastPlayerPick)
		g.lastPlayerPick = &p
	} else {
		g.lastPlayerPick = nil
	}
	if s.LastCenterPick != nil {
		p := pick(*s.LastCenterPick)
		g.lastCenterPick = &p
	} else {
		g.lastCenterPick = nil
	}

	votes := make(map[string]struct{}, len(s.Restart.VoteSessionIDs))
	for _, v := range s.Restart.VoteSessionIDs {
		votes[v] = struct{}{}
	}
	requesters := make(map[string]struct{}, len(s.Restart.RequesterNames))
	for _, r := range s.Restart.RequesterNames {
		requesters[r] = struct{}{}
	}
	g.restart = RestartState{
		Phase:            s.Restart.Phase,
		Votes:            votes,
		VoteCount:        len(votes),
		Requesters:       requesters,
		Initiator:        s.Restart.Initiator,
		DeclinedBy:       s.Restart.DeclinedBy,
		InProgress:       s.Restart.InProgress,
		CooldownUntil:    s.Restart.CooldownUntil,
		InitiatorClearAt: s.Restart.InitiatorClearAt,
		CommitAt:         s.Restart.CommitAt,
		CommitFired:      s.Restart.CommitFired,
		HoldUntil:        s.Restart.HoldUntil,
	}

	g.history = append([]HistoryEvent{}, s.History...)
}
