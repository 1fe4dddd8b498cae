// Package gateway is the front-end gateway: the HTTP+JSON surface a browser
// talks to. It runs its own lowest-ID election over sibling front-ends,
// holds the one engine.Game this process serves between snapshot pushes, and
// translates every mutating HTTP action into an engine call followed by a
// SaveSnapshot push to the pinned back-end leader. On back-end leader change
// it reloads the new leader's snapshot and adopts it as its authoritative
// view.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spotit/internal/controlapi"
	"spotit/internal/election"
	"spotit/internal/engine"
	"spotit/internal/health"
	"spotit/internal/snapshot"
	"spotit/pkg/config"
)

// Gateway is one front-end process.
type Gateway struct {
	cfg config.FrontendConfig
	log zerolog.Logger

	elector *election.Elector
	game    *engine.Game

	httpClient *http.Client
	backends   map[int]*controlapi.Client

	mu           sync.RWMutex
	pinnedClient *controlapi.Client

	// pushMu serializes pushSnapshot so at most one SaveSnapshot is in
	// flight per game; overlapping pushes would race at the backend, where
	// last-writer-wins per backup.
	pushMu sync.Mutex
}

// New constructs a Gateway. It does not start its background loops; call Run.
func New(cfg config.FrontendConfig, log zerolog.Logger) *Gateway {
	log = log.With().Str("component", "gateway").Int("frontend_id", cfg.ID).Logger()

	backends := make(map[int]*controlapi.Client, len(cfg.Backends))
	for id, addr := range cfg.Backends {
		backends[id] = controlapi.NewClient("http://"+addr, config.RPCDefaultDeadline)
	}

	hc := &http.Client{Timeout: config.FrontendProbeDeadline}
	ping := func(ctx context.Context, addr string) bool {
		return health.PingHTTP(ctx, hc, "http://"+addr, config.FrontendProbeDeadline)
	}

	return &Gateway{
		cfg:        cfg,
		log:        log,
		elector:    election.New(cfg.ID, cfg.Siblings, ping),
		game:       engine.New(cfg.ExpectedCount),
		httpClient: hc,
		backends:   backends,
	}
}

// IsLeader reports whether this front-end currently serves traffic.
func (g *Gateway) IsLeader() bool { return g.elector.IsLeader() }

// Run starts the front-end election loop and the back-end leader discovery
// loop; it blocks until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	go g.elector.Run(ctx, config.FrontendElectionInterval, config.FrontendProbeDeadline)
	g.discoverLoop(ctx)
}

func (g *Gateway) discoverLoop(ctx context.Context) {
	g.reconverge(ctx)
	ticker := time.NewTicker(config.BackendDiscoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.reconverge(ctx)
		}
	}
}

// reconverge probes every known back-end for GetLeaderInfo, pins a client to
// whichever address comes back, and — if the pinned leader changed —
// reloads the authoritative snapshot.
func (g *Gateway) reconverge(ctx context.Context) {
	leaderAddr, ok := g.discoverLeaderAddr(ctx)
	if !ok {
		g.log.Warn().Msg("no backend reachable for leader discovery")
		return
	}

	g.mu.RLock()
	changed := "http://"+leaderAddr != g.pinnedAddrLocked()
	g.mu.RUnlock()
	if !changed {
		return
	}

	client := controlapi.NewClient("http://"+leaderAddr, config.RPCDefaultDeadline)

	vctx, vcancel := context.WithTimeout(ctx, config.RPCDefaultDeadline)
	ok, msg, err := client.CheckVersion(vctx, config.Version)
	vcancel()
	if err == nil && !ok {
		g.log.Warn().Str("leader", leaderAddr).Str("message", msg).Msg("backend leader runs a different version")
	}

	cctx, cancel := context.WithTimeout(ctx, config.RPCDefaultDeadline)
	data, err := client.LoadSnapshot(cctx)
	cancel()
	if errors.Is(err, controlapi.ErrEmptySnapshot) {
		// Fresh cluster: nothing committed yet. Pin the leader anyway so the
		// next mutating action's snapshot push has somewhere to land.
		g.mu.Lock()
		g.pinnedClient = client
		g.mu.Unlock()
		g.log.Info().Str("leader", leaderAddr).Msg("pinned backend leader with empty store; keeping local game")
		return
	}
	if err != nil {
		g.log.Warn().Err(err).Str("leader", leaderAddr).Msg("load-snapshot on new leader failed; keeping prior state")
		return
	}

	state, err := snapshot.Decode(data)
	if err != nil {
		g.log.Warn().Err(err).Msg("decode snapshot from new leader failed; keeping prior state")
		return
	}

	g.game.LoadSnapshot(state)
	g.mu.Lock()
	g.pinnedClient = client
	g.mu.Unlock()
	g.log.Info().Str("leader", leaderAddr).Msg("adopted snapshot from new backend leader")
}

func (g *Gateway) pinnedAddrLocked() string {
	if g.pinnedClient == nil {
		return ""
	}
	return g.pinnedClient.BaseURL()
}

// discoverLeaderAddr asks every known back-end for its view of the leader;
// the first successful reply wins.
func (g *Gateway) discoverLeaderAddr(ctx context.Context) (string, bool) {
	for _, c := range g.backends {
		cctx, cancel := context.WithTimeout(ctx, config.RPCDefaultDeadline)
		addr, err := c.GetLeaderInfo(cctx)
		cancel()
		if err == nil && addr != "" {
			return addr, true
		}
	}
	return "", false
}

// pushSnapshot synchronously pushes the current engine state to the pinned
// back-end leader. Pushes are serialized on pushMu: concurrent handlers each
// take the lock in turn and snapshot the engine while holding it, so the
// leader sees whole-game states in order, never two overlapping writes from
// this gateway. Failures are logged, never surfaced to the caller: the
// action already committed locally, and the next successful push carries it,
// since every push sends the complete game state.
func (g *Gateway) pushSnapshot(ctx context.Context) {
	g.pushMu.Lock()
	defer g.pushMu.Unlock()

	g.mu.RLock()
	client := g.pinnedClient
	g.mu.RUnlock()
	if client == nil {
		g.log.Warn().Msg("no pinned backend leader; snapshot push skipped")
		return
	}

	data, err := snapshot.Encode(g.game.Snapshot())
	if err != nil {
		g.log.Error().Err(err).Msg("snapshot encode failed")
		return
	}

	cctx, cancel := context.WithTimeout(ctx, config.RPCDefaultDeadline)
	defer cancel()
	if _, err := client.SaveSnapshot(cctx, data); err != nil {
		g.log.Warn().Err(err).Msg("save-snapshot to pinned leader failed")
	}
}
