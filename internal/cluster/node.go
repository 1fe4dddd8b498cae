// Package cluster wires the back-end node together: the persistent store,
// the lowest-ID elector pinging peers over TCP, the replication leader
// fanning out to backups, and the Control API hook set those pieces are
// exposed through. One Node per process.
package cluster

import (
	"context"

	"github.com/rs/zerolog"

	"spotit/internal/controlapi"
	"spotit/internal/election"
	"spotit/internal/health"
	"spotit/internal/replication"
	"spotit/internal/store"
	"spotit/pkg/config"
)

// Node is one back-end cluster member: it runs its own election over the
// static peer table, holds the single-slot store, and replicates writes to backups when it is the leader.
type Node struct {
	cfg config.NodeConfig
	log zerolog.Logger

	store   *store.Store
	elector *election.Elector
	leader  *replication.Leader
}

// New constructs a Node from its static configuration. It does not start the
// election loop; call Run for that.
func New(cfg config.NodeConfig, log zerolog.Logger) *Node {
	log = log.With().Str("component", "cluster").Int("node_id", cfg.ID).Logger()

	leaderPeers := make(map[int]replication.PeerClient, len(cfg.Peers))
	for id, addr := range cfg.Peers {
		leaderPeers[id] = replicationPeer{controlapi.NewClient("http://"+addr, config.RPCDefaultDeadline)}
	}

	ping := func(ctx context.Context, addr string) bool {
		return health.PingTCP(ctx, addr, config.BackendPingDeadline)
	}

	st := store.New(cfg.StorePath)
	elector := election.New(cfg.ID, cfg.Peers, ping)

	// A peer is "down" once it has been seen alive and then stopped answering
	// pings; a peer that was never alive is still attempted, since nothing has
	// been observed about it yet.
	down := func(peerID int) bool {
		return elector.EverAlive(peerID) && !elector.IsAlive(peerID)
	}

	return &Node{
		cfg:     cfg,
		log:     log,
		store:   st,
		elector: elector,
		leader:  replication.NewLeader(st, leaderPeers, down, config.ReplicationDeadline, log),
	}
}

// replicationPeer adapts *controlapi.Client to replication.PeerClient without
// exposing the full client surface to the replication package.
type replicationPeer struct{ c *controlapi.Client }

func (p replicationPeer) ReplicateSaveSnapshot(ctx context.Context, data []byte) (bool, error) {
	return p.c.ReplicateSaveSnapshot(ctx, data)
}

// Run starts the election loop; it blocks until ctx is cancelled.
func (n *Node) Run(ctx context.Context) {
	n.log.Info().Str("listen", n.cfg.ListenAddr).Msg("backend node starting election loop")
	n.elector.Run(ctx, config.BackendHeartbeatInterval, config.BackendPingDeadline)
}

// IsLeader reports whether this node currently believes itself the leader.
func (n *Node) IsLeader() bool { return n.elector.IsLeader() }

// leaderAddr resolves the current leader id to a host:port, whether that is
// self or a peer.
func (n *Node) leaderAddr() string {
	id := n.elector.LeaderID()
	if id == n.cfg.ID {
		return n.cfg.ListenAddr
	}
	return n.cfg.Peers[id]
}

// ControlAPI builds the controlapi.Node hook set this cluster node answers
// its Control API through.
func (n *Node) ControlAPI() controlapi.Node {
	return controlapi.Node{
		GetLeaderAddr: n.leaderAddr,
		IsLeader:      n.IsLeader,
		SaveAndReplicate: func(data []byte) error {
			if !n.IsLeader() {
				return controlapi.ErrNotLeader
			}
			return n.leader.SaveSnapshot(context.Background(), data)
		},
		SaveLocal: n.store.Save,
		LoadLocal: n.store.Load,
	}
}
