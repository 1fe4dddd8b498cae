package gateway

import (
	"spotit/internal/deck"
	"spotit/internal/engine"
)

// placementWire/cardWire are the browser-facing render shapes for a card,
// resolving Symbol to its display glyph at this HTTP boundary.
type placementWire struct {
	Emoji    string  `json:"emoji"`
	Slot     int     `json:"slot"`
	Size     int     `json:"size"`
	Rotation float64 `json:"rotation"`
}

type cardWire []placementWire

func buildCard(c deck.Card) cardWire {
	out := make(cardWire, 0, len(c.Placements))
	for _, p := range c.Placements {
		out = append(out, placementWire{Emoji: deck.Glyph(p.Symbol), Slot: p.Slot, Size: p.Size, Rotation: p.Rotation})
	}
	return out
}

type playerWire struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Score  int    `json:"score"`
}

type restartWire struct {
	Phase             string `json:"phase"`
	VoteCount         int    `json:"vote_count"`
	ExpectedVotes     int    `json:"expected_votes"`
	Initiator         string `json:"initiator,omitempty"`
	DeclinedBy        string `json:"declined_by,omitempty"`
	InProgress        bool   `json:"in_progress"`
	CooldownRemaining int64  `json:"cooldown_remaining_ms"`
}

// view is the JSON rendering of engine.View: everything one requesting
// session needs to draw its screen.
type view struct {
	ExpectedPlayers int                 `json:"expected_players"`
	Started         bool                `json:"started"`
	Finished        bool                `json:"finished"`
	Winner          string              `json:"winner,omitempty"`
	Players         []playerWire        `json:"players"`
	MyTopCard       cardWire            `json:"my_top_card,omitempty"`
	OtherTopCards   map[string]cardWire `json:"other_top_cards"`
	CenterHead      cardWire            `json:"center_head,omitempty"`
	CenterRemaining int                 `json:"center_remaining"`
	Restart         restartWire         `json:"restart"`
}

func buildView(v engine.View) *view {
	players := make([]playerWire, len(v.Players))
	for i, p := range v.Players {
		players[i] = playerWire{Name: p.Name, Status: string(p.Status), Score: p.Score}
	}

	others := make(map[string]cardWire, len(v.OtherTopCards))
	for name, c := range v.OtherTopCards {
		others[name] = buildCard(c)
	}

	out := &view{
		ExpectedPlayers: v.ExpectedPlayers,
		Started:         v.Started,
		Finished:        v.Finished,
		Winner:          v.Winner,
		Players:         players,
		OtherTopCards:   others,
		CenterRemaining: v.CenterRemaining,
		Restart: restartWire{
			Phase:             string(v.Restart.Phase),
			VoteCount:         v.Restart.VoteCount,
			ExpectedVotes:     v.Restart.ExpectedVotes,
			Initiator:         v.Restart.Initiator,
			DeclinedBy:        v.Restart.DeclinedBy,
			InProgress:        v.Restart.InProgress,
			CooldownRemaining: v.Restart.CooldownRemaining.Milliseconds(),
		},
	}
	if v.MyTopCard != nil {
		out.MyTopCard = buildCard(*v.MyTopCard)
	}
	if v.CenterHead != nil {
		out.CenterHead = buildCard(*v.CenterHead)
	}
	return out
}
