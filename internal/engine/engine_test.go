package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spotit/internal/deck"
)

func TestJoin_NameTakenAndLobbyFull(t *testing.T) {
	g := New(2)
	_, err := g.Join("alice")
	require.NoError(t, err)

	_, err = g.Join("alice")
	require.ErrorIs(t, err, ErrNameTaken)

	_, err = g.Join("bob")
	require.NoError(t, err)

	_, err = g.Join("carol")
	require.ErrorIs(t, err, ErrLobbyFull)
}

func TestJoin_StartsGameWhenLobbyFills(t *testing.T) {
	g := New(2)
	_, err := g.Join("alice")
	require.NoError(t, err)
	view := g.ViewFor("")
	require.False(t, view.Started)

	_, err = g.Join("bob")
	require.NoError(t, err)

	view = g.ViewFor("")
	require.True(t, view.Started)
	require.Equal(t, 55, view.CenterRemaining, "57 cards minus 2 dealt = 55 in center")
}

// findCommonSymbol returns a symbol shared by both cards (guaranteed to
// exist, per the deck's pairwise-intersection-one invariant).
func findCommonSymbol(a, b deck.Card) deck.Symbol {
	for s := range a.Symbols() {
		if b.HasSymbol(s) {
			return s
		}
	}
	panic("no common symbol; deck invariant violated")
}

func TestTwoPlayerMatch(t *testing.T) {
	g := New(2)
	aliceSess, err := g.Join("alice")
	require.NoError(t, err)
	_, err = g.Join("bob")
	require.NoError(t, err)

	view := g.ViewFor(aliceSess)
	require.NotNil(t, view.MyTopCard)
	require.NotNil(t, view.CenterHead)
	sym := findCommonSymbol(*view.MyTopCard, *view.CenterHead)

	out, err := g.ClickPlayerSymbol(aliceSess, sym)
	require.NoError(t, err)
	require.Equal(t, OutcomeHighlight, out.Kind)

	out, err = g.ClickCenterSymbol(aliceSess, sym)
	require.NoError(t, err)
	require.Equal(t, OutcomeMatch, out.Kind)
	require.Equal(t, "alice", out.ScoringPlayer)
	require.Equal(t, 1, out.NewScore)

	view = g.ViewFor(aliceSess)
	require.Equal(t, 54, view.CenterRemaining)
}

func TestClick_InvalidSymbolIsInvalidRequest(t *testing.T) {
	g := New(2)
	aliceSess, _ := g.Join("alice")
	_, _ = g.Join("bob")

	view := g.ViewFor(aliceSess)
	var missing deck.Symbol = -1
	for s := deck.Symbol(0); s < 57; s++ {
		if !view.MyTopCard.HasSymbol(s) {
			missing = s
			break
		}
	}
	require.NotEqual(t, deck.Symbol(-1), missing)

	_, err := g.ClickPlayerSymbol(aliceSess, missing)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNoMatch_ClearsBothPicks(t *testing.T) {
	g := New(2)
	aliceSess, _ := g.Join("alice")
	_, _ = g.Join("bob")

	view := g.ViewFor(aliceSess)
	top := *view.MyTopCard
	head := *view.CenterHead
	common := findCommonSymbol(top, head)

	var playerOnly deck.Symbol = -1
	for s := range top.Symbols() {
		if s != common {
			playerOnly = s
			break
		}
	}
	require.NotEqual(t, deck.Symbol(-1), playerOnly)

	_, err := g.ClickPlayerSymbol(aliceSess, playerOnly)
	require.NoError(t, err)
	out, err := g.ClickCenterSymbol(aliceSess, common)
	require.NoError(t, err)
	require.Equal(t, OutcomeNoMatch, out.Kind)

	// Both picks cleared: next click is a fresh highlight, not an adjudication.
	out, err = g.ClickPlayerSymbol(aliceSess, playerOnly)
	require.NoError(t, err)
	require.Equal(t, OutcomeHighlight, out.Kind)
}

func TestRotate_PreservesCenterSlotAndFollowsRingRule(t *testing.T) {
	g := New(2)
	aliceSess, _ := g.Join("alice")
	_, _ = g.Join("bob")

	before := *g.ViewFor(aliceSess).MyTopCard
	err := g.Rotate(aliceSess, RotateCW)
	require.NoError(t, err)
	after := *g.ViewFor(aliceSess).MyTopCard

	for _, bp := range before.Placements {
		if bp.Slot == 0 {
			continue
		}
		var found bool
		for _, ap := range after.Placements {
			if ap.Symbol == bp.Symbol {
				require.Equal(t, (bp.Slot%7)+1, ap.Slot)
				found = true
			}
		}
		require.True(t, found)
	}
	for _, ap := range after.Placements {
		if ap.Symbol == before.Placements[centerSlotIndex(before)].Symbol {
			require.Equal(t, 0, ap.Slot)
		}
	}
}

func centerSlotIndex(c deck.Card) int {
	for i, p := range c.Placements {
		if p.Slot == 0 {
			return i
		}
	}
	panic("no center placement")
}

func TestFinishOnEmptyCenter(t *testing.T) {
	g := New(2)
	aliceSess, _ := g.Join("alice")
	bobSess, _ := g.Join("bob")

	// Reduce the center pile to its head card so the next match drains it.
	g.mu.Lock()
	g.centerPile = g.centerPile[:1]
	g.mu.Unlock()

	view := g.ViewFor(aliceSess)
	sym := findCommonSymbol(*view.MyTopCard, *view.CenterHead)

	_, err := g.ClickPlayerSymbol(aliceSess, sym)
	require.NoError(t, err)
	out, err := g.ClickCenterSymbol(aliceSess, sym)
	require.NoError(t, err)
	require.Equal(t, OutcomeMatch, out.Kind)
	require.True(t, out.GameFinished)
	require.Equal(t, "alice", out.Winner, "alice scored 1, bob 0")

	view = g.ViewFor(aliceSess)
	require.True(t, view.Finished)
	require.Equal(t, 0, view.CenterRemaining)
	for _, p := range view.Players {
		require.Equal(t, StatusFinish, p.Status)
	}

	_, err = g.ClickPlayerSymbol(bobSess, sym)
	require.ErrorIs(t, err, ErrGameOver)
}

func TestWinner_TieBrokenByJoinOrder(t *testing.T) {
	g := New(2)
	_, _ = g.Join("alice")
	_, _ = g.Join("bob")

	g.mu.Lock()
	g.centerPile = nil
	g.finishLocked()
	winner := g.winner
	g.mu.Unlock()

	require.Equal(t, "alice", winner, "all scores zero: earliest join wins")
}

func TestRestart_UnanimousVoteCommitsAfterDelay(t *testing.T) {
	g := New(2)
	aliceSess, _ := g.Join("alice")
	bobSess, _ := g.Join("bob")

	err := g.RequestRestart(aliceSess)
	require.NoError(t, err)
	status := g.RestartStatus()
	require.Equal(t, RestartVoting, status.Phase)
	require.Equal(t, 1, status.VoteCount)

	err = g.RequestRestart(bobSess)
	require.NoError(t, err)
	status = g.RestartStatus()
	require.Equal(t, RestartCommitting, status.Phase)
	require.True(t, status.InProgress)

	// Requests while committing/in-progress are throttled.
	err = g.RequestRestart(aliceSess)
	require.Error(t, err)
	var throttled *RestartThrottledError
	require.ErrorAs(t, err, &throttled)

	// Force the commit timer to have elapsed.
	g.mu.Lock()
	g.restart.CommitAt = time.Now().Add(-1 * time.Hour)
	g.mu.Unlock()

	status = g.RestartStatus()
	require.True(t, status.InProgress, "in_progress latches true through the post-commit hold")

	g.mu.Lock()
	scoresReset := true
	for _, v := range g.scores {
		if v != 0 {
			scoresReset = false
		}
	}
	g.mu.Unlock()
	require.True(t, scoresReset)
}

func TestRestart_DeclineStartsCooldown(t *testing.T) {
	g := New(3)
	aliceSess, _ := g.Join("alice")
	bobSess, _ := g.Join("bob")
	carolSess, _ := g.Join("carol")

	require.NoError(t, g.RequestRestart(aliceSess))
	require.NoError(t, g.RequestRestart(bobSess))

	require.NoError(t, g.DeclineRestart(carolSess))
	status := g.RestartStatus()
	require.Equal(t, RestartCooldown, status.Phase)
	require.Equal(t, "carol", status.DeclinedBy)
	require.Greater(t, status.CooldownRemaining, time.Duration(0))

	err := g.RequestRestart(aliceSess)
	require.Error(t, err)
	var throttled *RestartThrottledError
	require.ErrorAs(t, err, &throttled)
	require.GreaterOrEqual(t, throttled.Remaining, time.Duration(0))
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New(2)
	aliceSess, _ := g.Join("alice")
	_, _ = g.Join("bob")
	view := g.ViewFor(aliceSess)
	sym := findCommonSymbol(*view.MyTopCard, *view.CenterHead)
	_, _ = g.ClickPlayerSymbol(aliceSess, sym)
	_, _ = g.ClickCenterSymbol(aliceSess, sym)

	snap := g.Snapshot()

	g2 := New(0)
	g2.LoadSnapshot(snap)

	v1 := g.ViewFor(aliceSess)
	v2 := g2.ViewFor(aliceSess)
	require.Equal(t, v1.Players, v2.Players)
	require.Equal(t, v1.CenterRemaining, v2.CenterRemaining)
	require.Equal(t, v1.MyTopCard, v2.MyTopCard)
}
