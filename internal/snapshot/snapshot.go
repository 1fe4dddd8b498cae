// Package snapshot is the wire codec for complete game state: a total
// encoder and a decoder that fails closed on malformed input. This package is
// the only place the snapshot document schema is spelled out as Go structs;
// a decoded document fully reconstructs an equivalent game.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"spotit/internal/deck"
	"spotit/internal/engine"
)

// ErrCorruptSnapshot is returned by Decode on malformed input. The caller is expected to keep its prior state and continue.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

const deckSizeHint = 57

// placementDoc is the Placement wire shape: {emoji, size, rotation, index}.
// The engine's internal Symbol id is resolved to its display glyph here, at
// the codec boundary.
type placementDoc struct {
	Emoji    string  `json:"emoji"`
	Size     int     `json:"size"`
	Rotation float64 `json:"rotation"`
	Index    int     `json:"index"`
}

// cardDoc is the Card wire shape: an ordered list of Placements.
type cardDoc []placementDoc

// pileDoc is an ordered list of Cards, used both for full_card_deck and for
// each entry of cards_pile.
type pileDoc []cardDoc

func encodeCard(c deck.Card) cardDoc {
	out := make(cardDoc, 0, len(c.Placements))
	for _, p := range c.Placements {
		out = append(out, placementDoc{
			Emoji:    deck.Glyph(p.Symbol),
			Size:     p.Size,
			Rotation: p.Rotation,
			Index:    p.Slot,
		})
	}
	return out
}

func encodePile(cards []deck.Card) pileDoc {
	out := make(pileDoc, len(cards))
	for i, c := range cards {
		out[i] = encodeCard(c)
	}
	return out
}

var glyphIndex map[string]deck.Symbol

func glyphToSymbol() map[string]deck.Symbol {
	if glyphIndex != nil {
		return glyphIndex
	}
	glyphIndex = make(map[string]deck.Symbol, deckSizeHint)
	for i := 0; i < deckSizeHint; i++ {
		glyphIndex[deck.Glyph(deck.Symbol(i))] = deck.Symbol(i)
	}
	return glyphIndex
}

func decodeCard(doc cardDoc) (deck.Card, error) {
	var c deck.Card
	if len(doc) != len(c.Placements) {
		return c, fmt.Errorf("%w: card has %d placements, want %d", ErrCorruptSnapshot, len(doc), len(c.Placements))
	}
	sym := glyphToSymbol()
	filled := make([]bool, len(c.Placements))
	for _, pd := range doc {
		if pd.Index < 0 || pd.Index >= len(c.Placements) {
			return c, fmt.Errorf("%w: placement index %d out of range", ErrCorruptSnapshot, pd.Index)
		}
		s, ok := sym[pd.Emoji]
		if !ok {
			return c, fmt.Errorf("%w: unknown symbol glyph %q", ErrCorruptSnapshot, pd.Emoji)
		}
		c.Placements[pd.Index] = deck.Placement{
			Symbol:   s,
			Slot:     pd.Index,
			Size:     pd.Size,
			Rotation: pd.Rotation,
		}
		filled[pd.Index] = true
	}
	for _, ok := range filled {
		if !ok {
			return c, fmt.Errorf("%w: card missing a placement slot", ErrCorruptSnapshot)
		}
	}
	return c, nil
}

func decodePile(doc pileDoc) ([]deck.Card, error) {
	out := make([]deck.Card, len(doc))
	for i, cd := range doc {
		c, err := decodeCard(cd)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

type playerDoc struct {
	Status    engine.PlayerStatus `json:"status"`
	JoinedAt  time.Time           `json:"joined_at"`
	SessionID string              `json:"session_id"`
}

type restartDoc struct {
	Phase            engine.RestartPhase `json:"phase"`
	VoteSessionIDs   []string            `json:"vote_session_ids"`
	RequesterNames   []string            `json:"requester_names"`
	Initiator        string              `json:"initiator"`
	DeclinedBy       string              `json:"declined_by,omitempty"`
	InProgress       bool                `json:"in_progress"`
	CooldownUntil    time.Time           `json:"cooldown_until"`
	InitiatorClearAt time.Time           `json:"initiator_clear_at"`
	CommitAt         time.Time           `json:"commit_at"`
	CommitFired      bool                `json:"commit_fired"`
	HoldUntil        time.Time           `json:"hold_until"`
}

type currentStateDoc struct {
	GameStarted  bool                 `json:"game_started"`
	GameFinished bool                 `json:"game_finished"`
	Winner       string               `json:"winner"`
	Players      map[string]playerDoc `json:"players"`
	Scores       []int                `json:"scores"`
	CardsPile    map[string]pileDoc   `json:"cards_pile"`
	FullCardDeck pileDoc              `json:"full_card_deck"`

	LastClickedPlayerEmoji     string `json:"last_clicked_player_emoji"`
	LastClickedCenterEmoji     string `json:"last_clicked_center_emoji"`
	LastClickedPlayerSessionID string `json:"last_clicked_player_session_id,omitempty"`
	LastClickedCenterSessionID string `json:"last_clicked_center_session_id,omitempty"`

	Restart restartDoc `json:"restart"`
}

type historyDoc struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Document is the top-level snapshot wire schema.
type Document struct {
	ServerStartTime time.Time         `json:"server_start_time"`
	LastUpdateTime  time.Time         `json:"last_update_time"`
	ExpectedPlayers int               `json:"expected_players"`
	PlayerSessions  map[string]string `json:"player_sessions"`
	CurrentState    currentStateDoc   `json:"current_state"`
	GameHistory     []historyDoc      `json:"game_history"`
}

// Encode serializes a Game's full state to the pinned JSON schema. Total on
// any valid engine.State.
func Encode(s engine.State) ([]byte, error) {
	doc := Document{
		ServerStartTime: s.ServerStartTime,
		LastUpdateTime:  s.LastUpdateTime,
		ExpectedPlayers: s.ExpectedPlayers,
		PlayerSessions:  s.SessionToName,
		GameHistory:     make([]historyDoc, 0, len(s.History)),
	}

	players := make(map[string]playerDoc, len(s.Players))
	scores := make([]int, len(s.Players))
	cardsPile := make(map[string]pileDoc, len(s.Players)+1)
	for i, p := range s.Players {
		players[p.Name] = playerDoc{Status: p.Status, JoinedAt: p.JoinedAt, SessionID: p.SessionID}
		scores[i] = s.Scores[p.Name]
		cardsPile[fmt.Sprintf("%d", i)] = encodePile(s.PlayerPiles[p.Name])
	}
	cardsPile["center"] = encodePile(s.CenterPile)

	doc.CurrentState = currentStateDoc{
		GameStarted:  s.Started,
		GameFinished: s.Finished,
		Winner:       s.Winner,
		Players:      players,
		Scores:       scores,
		CardsPile:    cardsPile,
		FullCardDeck: encodePile(s.FullDeck),
		Restart: restartDoc{
			Phase:            s.Restart.Phase,
			VoteSessionIDs:   s.Restart.VoteSessionIDs,
			RequesterNames:   s.Restart.RequesterNames,
			Initiator:        s.Restart.Initiator,
			DeclinedBy:       s.Restart.DeclinedBy,
			InProgress:       s.Restart.InProgress,
			CooldownUntil:    s.Restart.CooldownUntil,
			InitiatorClearAt: s.Restart.InitiatorClearAt,
			CommitAt:         s.Restart.CommitAt,
			CommitFired:      s.Restart.CommitFired,
			HoldUntil:        s.Restart.HoldUntil,
		},
	}
	if s.LastPlayerPick != nil {
		doc.CurrentState.LastClickedPlayerEmoji = deck.Glyph(s.LastPlayerPick.Symbol)
		doc.CurrentState.LastClickedPlayerSessionID = s.LastPlayerPick.SessionID
	}
	if s.LastCenterPick != nil {
		doc.CurrentState.LastClickedCenterEmoji = deck.Glyph(s.LastCenterPick.Symbol)
		doc.CurrentState.LastClickedCenterSessionID = s.LastCenterPick.SessionID
	}
	for _, h := range s.History {
		doc.GameHistory = append(doc.GameHistory, historyDoc{Timestamp: h.Timestamp, EventType: h.EventType, Detail: h.Detail})
	}

	return json.Marshal(doc)
}

// Decode parses a previously encoded document back into an engine.State. Any
// structural problem (bad JSON, wrong shapes, unknown glyphs, index ranges)
// is reported as ErrCorruptSnapshot.
func Decode(data []byte) (engine.State, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return engine.State{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return fromDocument(doc)
}

func fromDocument(doc Document) (engine.State, error) {
	s := engine.State{
		ExpectedPlayers: doc.ExpectedPlayers,
		ServerStartTime: doc.ServerStartTime,
		LastUpdateTime:  doc.LastUpdateTime,
		SessionToName:   doc.PlayerSessions,
		Started:         doc.CurrentState.GameStarted,
		Finished:        doc.CurrentState.GameFinished,
		Winner:          doc.CurrentState.Winner,
		Scores:          make(map[string]int, len(doc.CurrentState.Players)),
		PlayerPiles:     make(map[string][]deck.Card, len(doc.CurrentState.Players)),
	}

	// Reconstruct join order from joined_at, since the document stores
	// players as a map keyed by name.
	var all []namedPlayerDoc
	for name, pd := range doc.CurrentState.Players {
		all = append(all, namedPlayerDoc{name, pd})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].doc.JoinedAt.Before(all[j].doc.JoinedAt) })

	s.Players = make([]engine.Player, len(all))
	for i, n := range all {
		s.Players[i] = engine.Player{
			Name:      n.name,
			Status:    n.doc.Status,
			JoinedAt:  n.doc.JoinedAt,
			SessionID: n.doc.SessionID,
		}
		if i < len(doc.CurrentState.Scores) {
			s.Scores[n.name] = doc.CurrentState.Scores[i]
		}
		pile, err := decodePile(doc.CurrentState.CardsPile[fmt.Sprintf("%d", i)])
		if err != nil {
			return engine.State{}, err
		}
		s.PlayerPiles[n.name] = pile
	}

	center, err := decodePile(doc.CurrentState.CardsPile["center"])
	if err != nil {
		return engine.State{}, err
	}
	s.CenterPile = center

	fullDeck, err := decodePile(doc.CurrentState.FullCardDeck)
	if err != nil {
		return engine.State{}, err
	}
	s.FullDeck = fullDeck

	if doc.CurrentState.LastClickedPlayerSessionID != "" {
		sym, ok := glyphToSymbol()[doc.CurrentState.LastClickedPlayerEmoji]
		if !ok {
			return engine.State{}, fmt.Errorf("%w: unknown last-player-pick glyph", ErrCorruptSnapshot)
		}
		s.LastPlayerPick = &engine.Pick{SessionID: doc.CurrentState.LastClickedPlayerSessionID, Symbol: sym}
	}
	if doc.CurrentState.LastClickedCenterSessionID != "" {
		sym, ok := glyphToSymbol()[doc.CurrentState.LastClickedCenterEmoji]
		if !ok {
			return engine.State{}, fmt.Errorf("%w: unknown last-center-pick glyph", ErrCorruptSnapshot)
		}
		s.LastCenterPick = &engine.Pick{SessionID: doc.CurrentState.LastClickedCenterSessionID, Symbol: sym}
	}

	r := doc.CurrentState.Restart
	s.Restart = engine.RestartSnapshot{
		Phase:            r.Phase,
		VoteSessionIDs:   r.VoteSessionIDs,
		RequesterNames:   r.RequesterNames,
		Initiator:        r.Initiator,
		DeclinedBy:       r.DeclinedBy,
		InProgress:       r.InProgress,
		CooldownUntil:    r.CooldownUntil,
		InitiatorClearAt: r.InitiatorClearAt,
		CommitAt:         r.CommitAt,
		CommitFired:      r.CommitFired,
		HoldUntil:        r.HoldUntil,
	}

	s.History = make([]engine.HistoryEvent, len(doc.GameHistory))
	for i, h := range doc.GameHistory {
		s.History[i] = engine.HistoryEvent{Timestamp: h.Timestamp, EventType: h.EventType, Detail: h.Detail}
	}

	return s, nil
}

// namedPlayerDoc pairs a player's name (the document's map key) with its
// decoded value, for sorting into join order.
type namedPlayerDoc struct {
	name string
	doc  playerDoc
}
