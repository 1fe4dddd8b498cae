package election

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTick_SingleLiveNodeIsLeader(t *testing.T) {
	e := New(1, map[int]string{}, func(context.Context, string) bool { return true })
	e.Tick(context.Background(), time.Second)
	require.True(t, e.IsLeader())
	require.Equal(t, 1, e.LeaderID())
}

func TestTick_LowestAliveIDWins(t *testing.T) {
	e := New(3, map[int]string{1: "1", 2: "2"}, func(ctx context.Context, addr string) bool {
		return addr == "1" || addr == "2"
	})
	e.Tick(context.Background(), time.Second)
	require.False(t, e.IsLeader())
	require.Equal(t, 1, e.LeaderID())
}

func TestTick_SelfWinsWhenLowerPeersDown(t *testing.T) {
	e := New(2, map[int]string{1: "1", 3: "3"}, func(ctx context.Context, addr string) bool {
		return addr == "3" // 1 is down
	})
	e.Tick(context.Background(), time.Second)
	require.True(t, e.IsLeader())
	require.Equal(t, 2, e.LeaderID())
	require.ElementsMatch(t, []int{3}, e.AlivePeers())
}

func TestRun_StopsOnCancel(t *testing.T) {
	e := New(1, map[int]string{2: "2"}, func(ctx context.Context, addr string) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx, 10*time.Millisecond, time.Second)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
