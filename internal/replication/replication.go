// Package replication implements the leader-to-backups snapshot push: write
// locally, then fan out ReplicateSaveSnapshot to every peer not marked down
// with an independent deadline, counting acks but always reporting success to the
// original caller once the local write lands. Backups may lag; a new leader
// overwrites them with its own snapshots on its next write.
package replication

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spotit/internal/store"
)

// PeerClient is the subset of controlapi.Client replication needs; declared
// as an interface so tests can fake unreachable/slow peers without a real
// HTTP server.
type PeerClient interface {
	ReplicateSaveSnapshot(ctx context.Context, data []byte) (bool, error)
}

// DownFunc reports whether a peer is currently marked down in the node's
// liveness map.
// A nil DownFunc treats every peer as up.
type DownFunc func(peerID int) bool

// Leader pushes snapshots to a fixed set of backup peers.
type Leader struct {
	local    *store.Store
	peers    map[int]PeerClient
	down     DownFunc
	deadline time.Duration
	log      zerolog.Logger
}

// NewLeader constructs a Leader. peers excludes self; down comes from the
// node's elector; deadline is the per-peer replication timeout.
func NewLeader(local *store.Store, peers map[int]PeerClient, down DownFunc, deadline time.Duration, log zerolog.Logger) *Leader {
	return &Leader{local: local, peers: peers, down: down, deadline: deadline, log: log.With().Str("component", "replication").Logger()}
}

// SaveSnapshot writes to the local store, then fans out to every peer not
// marked down, each with an independent deadline. It always returns nil to
// the caller once the local write succeeds; replication is opportunistic,
// not quorum-gated.
func (l *Leader) SaveSnapshot(ctx context.Context, data []byte) error {
	if err := l.local.Save(data); err != nil {
		return err
	}

	acks := 1 // the leader's own local write counts as one ack
	var mu sync.Mutex
	var wg sync.WaitGroup
	for id, peer := range l.peers {
		if l.down != nil && l.down(id) {
			l.log.Debug().Int("peer", id).Msg("peer marked down, skipping replication")
			continue
		}
		wg.Add(1)
		go func(id int, peer PeerClient) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, l.deadline)
			defer cancel()
			ok, err := peer.ReplicateSaveSnapshot(pctx, data)
			if err != nil {
				l.log.Warn().Int("peer", id).Err(err).Msg("replication failed, peer unreachable")
				return
			}
			if ok {
				mu.Lock()
				acks++
				mu.Unlock()
			}
		}(id, peer)
	}
	wg.Wait()

	l.log.Info().Int("acks", acks).Int("peers", len(l.peers)+1).Msg("snapshot replicated")
	return nil
}
