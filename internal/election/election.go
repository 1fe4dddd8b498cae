// Package election implements deterministic lowest-ID leader election over
// liveness pings: no consensus round, just "lowest currently-alive id wins"
// recomputed on a fixed interval. One Elector type serves both the back-end
// cluster (2 s interval, TCP probe) and the front-end gateway (5 s interval,
// HTTP /healthz probe) — only the probe function and interval differ.
package election

import (
	"context"
	"sync"
	"time"
)

// PingFunc reports whether the peer at addr is currently reachable. Callers
// wire this to health.PingTCP (back-end) or health.PingHTTP (front-end).
type PingFunc func(ctx context.Context, addr string) bool

// Elector pings every peer each tick, computes
// alive_ids = {self} ∪ {live peers}, and takes leader = min(alive_ids).
type Elector struct {
	selfID int
	peers  map[int]string // peer id -> addr, excludes self
	ping   PingFunc

	mu        sync.RWMutex
	liveness  map[int]bool
	everAlive map[int]bool
	leaderID  int
}

// New constructs an Elector that starts out believing itself the leader,
// which holds trivially until the first Tick runs with peers.
func New(selfID int, peers map[int]string, ping PingFunc) *Elector {
	return &Elector{
		selfID:    selfID,
		peers:     peers,
		ping:      ping,
		liveness:  make(map[int]bool, len(peers)),
		everAlive: make(map[int]bool, len(peers)),
		leaderID:  selfID,
	}
}

// Tick pings every peer with the given deadline and recomputes the leader.
func (e *Elector) Tick(ctx context.Context, deadline time.Duration) {
	liveness := make(map[int]bool, len(e.peers))
	for id, addr := range e.peers {
		pctx, cancel := context.WithTimeout(ctx, deadline)
		liveness[id] = e.ping(pctx, addr)
		cancel()
	}

	aliveIDs := []int{e.selfID}
	for id, alive := range liveness {
		if alive {
			aliveIDs = append(aliveIDs, id)
		}
	}
	leader := aliveIDs[0]
	for _, id := range aliveIDs[1:] {
		if id < leader {
			leader = id
		}
	}

	e.mu.Lock()
	e.liveness = liveness
	for id, alive := range liveness {
		if alive {
			e.everAlive[id] = true
		}
	}
	e.leaderID = leader
	e.mu.Unlock()
}

// Run ticks on a fixed interval until ctx is cancelled.
func (e *Elector) Run(ctx context.Context, interval, deadline time.Duration) {
	e.Tick(ctx, deadline)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx, deadline)
		}
	}
}

// IsLeader reports whether this node currently believes itself the leader.
func (e *Elector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leaderID == e.selfID
}

// LeaderID returns the current leader's id.
func (e *Elector) LeaderID() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leaderID
}

// IsAlive reports the last-observed liveness of a given peer id.
func (e *Elector) IsAlive(peerID int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.liveness[peerID]
}

// EverAlive reports whether a peer has ever been observed alive since this
// elector started.
func (e *Elector) EverAlive(peerID int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.everAlive[peerID]
}

// AlivePeers returns the ids of peers last observed alive, excluding self.
func (e *Elector) AlivePeers() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]int, 0, len(e.liveness))
	for id, alive := range e.liveness {
		if alive {
			out = append(out, id)
		}
	}
	return out
}
