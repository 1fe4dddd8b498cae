// Command backend-node runs one member of the replication cluster: the
// single-slot snapshot store, the lowest-ID election loop, and the Control
// API surface, in one process.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"spotit/internal/cluster"
	"spotit/internal/controlapi"
	"spotit/pkg/config"
)

func main() {
	id := flag.Int("id", 1, "this node's static id in {1,...,N}")
	listen := flag.String("listen", ":8101", "host:port this node serves the Control API on")
	peers := flag.String("peers", "", "comma-separated peer list: id=host:port,id=host:port")
	storePath := flag.String("store", "spotit-node.snapshot", "path to this node's single-slot snapshot file")
	expected := flag.Int("expected-players", 2, "number of players this game's lobby expects")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	peerTable, err := config.ParsePeerTable(*peers)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -peers value")
	}

	cfg := config.NodeConfig{
		ID:            *id,
		ListenAddr:    *listen,
		Peers:         peerTable,
		StorePath:     *storePath,
		ExpectedCount: *expected,
	}

	node := cluster.New(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go node.Run(ctx)

	router := controlapi.NewRouter(node.ControlAPI(), log)
	srv := &http.Server{Addr: *listen, Handler: router}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Info().Int("id", *id).Str("listen", *listen).Msg("backend node serving Control API")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("control API server failed")
	}
}
