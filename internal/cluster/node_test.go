package cluster

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"spotit/internal/controlapi"
	"spotit/pkg/config"
)

func newTestNode(t *testing.T, id int, peers map[int]string) *Node {
	cfg := config.NodeConfig{
		ID:            id,
		ListenAddr:    "127.0.0.1:0",
		Peers:         peers,
		StorePath:     filepath.Join(t.TempDir(), "snapshot.json"),
		ExpectedCount: 2,
	}
	return New(cfg, zerolog.Nop())
}

func TestNode_SingleNodeIsLeader(t *testing.T) {
	n := newTestNode(t, 1, map[int]string{})
	require.True(t, n.IsLeader(), "a node with no peers believes itself leader before any Tick")
	require.Equal(t, n.cfg.ListenAddr, n.leaderAddr())
}

func TestNode_SaveAndReplicate_LeaderSucceeds(t *testing.T) {
	n := newTestNode(t, 1, map[int]string{})
	api := n.ControlAPI()

	require.NoError(t, api.SaveAndReplicate([]byte(`{"a":1}`)))

	got, err := api.LoadLocal()
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(got))
}

func TestNode_SaveAndReplicate_BackupRejects(t *testing.T) {
	// A live listener standing in for a lower-id peer, so node 2's election
	// tick observes id 1 as alive and steps down to backup.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	n := newTestNode(t, 2, map[int]string{1: ln.Addr().String()})
	n.elector.Tick(context.Background(), config.BackendPingDeadline)
	require.False(t, n.IsLeader())

	api := n.ControlAPI()
	err = api.SaveAndReplicate([]byte(`{"a":1}`))
	require.ErrorIs(t, err, controlapi.ErrNotLeader)
}

func TestNode_LeaderAddr_ResolvesToSelfWhenLowerPeerDown(t *testing.T) {
	n := newTestNode(t, 2, map[int]string{1: "127.0.0.1:1"})
	n.elector.Tick(context.Background(), config.BackendPingDeadline)
	// 1 is unreachable at the reserved port, so 2 stays leader.
	require.True(t, n.IsLeader())
	require.Equal(t, n.cfg.ListenAddr, n.leaderAddr())
}
