package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/MikeTeddyOmondi/syscache/internal/cache"
	"github.com/MikeTeddyOmondi/syscache/internal/config"
	"github.com/MikeTeddyOmondi/syscache/internal/logger"
	"github.com/MikeTeddyOmondi/syscache/internal/metrics"
	"github.com/MikeTeddyOmondi/syscache/internal/syncer"
	"github.com/MikeTeddyOmondi/syscache/internal/transport"
	"github.com/MikeTeddyOmondi/syscache/internal/transport/ws"
)

const shutdownGrace = 5 * time.Second

func main() {
	app := &cli.App{
		Name:  "syscache-peer",
		Usage: "WebSocket sync peer backed by a Bolt database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"SYSCACHE_CONFIG"}},
			&cli.StringFlag{Name: "listen", Usage: "listen address (overrides peer.listen)"},
			&cli.StringFlag{Name: "db", Usage: "Bolt database path (overrides peer.db)"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("listen"); v != "" {
		cfg.Peer.Listen = v
	}
	if v := c.String("db"); v != "" {
		cfg.Peer.DB = v
	}

	if err := logger.Init(cfg.Log.Path); err != nil {
		return err
	}
	defer logger.Close()

	// Ensure the database directory exists.
	_ = os.MkdirAll(filepath.Dir(cfg.Peer.DB), 0o755)
	store, err := cache.OpenDurable(cfg.Peer.DB, cache.Options{Bucket: cfg.Peer.Bucket})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Peer.DB, err)
	}
	defer store.Close()
	logger.Infof("Loaded %d entries from %s", store.Len(), cfg.Peer.DB)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSync(reg)

	mux := http.NewServeMux()
	mux.Handle(cfg.Peer.Path, ws.NewHandler(serveSession(store, m)))
	if cfg.Peer.Metrics != "" {
		mux.Handle(cfg.Peer.Metrics, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:        cfg.Peer.Listen,
		Handler:     mux,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s%s", cfg.Peer.Listen, cfg.Peer.Path)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Infof("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}
	return nil
}

// serveSession runs the accepting side of the protocol: the peer pushes its
// own snapshot and applies whatever the client sends.
func serveSession(store cache.KV, m *metrics.Sync) ws.ServeFunc {
	return func(ctx context.Context, remote string, conn transport.Conn) {
		s := syncer.New(store, nil, remote, syncer.WithMetrics(m))
		if err := s.Serve(ctx, conn); err != nil {
			logger.Warnf("session %s ended: %v", remote, err)
		}
	}
}
