// Command frontend runs one front-end gateway instance: the browser-facing
// HTTP surface, gated by its own lowest-ID election over sibling front-ends.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"spotit/internal/gateway"
	"spotit/pkg/config"
)

func main() {
	id := flag.Int("id", 1, "this front-end's static id, used for sibling election")
	listen := flag.String("listen", ":8001", "host:port this gateway serves HTTP on")
	siblings := flag.String("siblings", "", "comma-separated sibling front-ends: id=host:port,id=host:port")
	backends := flag.String("backends", "", "comma-separated backend Control API addrs: id=host:port,id=host:port")
	expected := flag.Int("expected-players", 2, "number of players this game's lobby expects")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	siblingTable, err := config.ParsePeerTable(*siblings)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -siblings value")
	}
	backendTable, err := config.ParsePeerTable(*backends)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -backends value")
	}

	cfg := config.FrontendConfig{
		ID:            *id,
		ListenAddr:    *listen,
		Siblings:      siblingTable,
		Backends:      backendTable,
		ExpectedCount: *expected,
	}

	gw := gateway.New(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go gw.Run(ctx)

	router := gateway.NewRouter(gw)
	srv := &http.Server{Addr: *listen, Handler: router}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Info().Int("id", *id).Str("listen", *listen).Msg("frontend gateway serving HTTP")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("frontend HTTP server failed")
	}
}
