package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"

	"github.com/MikeTeddyOmondi/syscache"
	"github.com/MikeTeddyOmondi/syscache/internal/config"
	"github.com/MikeTeddyOmondi/syscache/internal/logger"
	tools "github.com/MikeTeddyOmondi/syscache/internal/tools"
)

func main() {
	app := &cli.App{
		Name:  "syscache-mcp",
		Usage: "MCP server exposing a local syscache instance over stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"SYSCACHE_CONFIG"}},
			&cli.StringFlag{Name: "log", Usage: "log file path (overrides log.path)"},
			&cli.StringFlag{Name: "sync", Usage: "peer URL to sync with at startup (overrides sync.address)"},
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
	if v := c.String("log"); v != "" {
		cfg.Log.Path = v
	}
	if v := c.String("sync"); v != "" {
		cfg.Sync.Address = v
	}

	if err := logger.Init(cfg.Log.Path); err != nil {
		return err
	}
	defer logger.Close()
	logger.Infof("Starting syscache MCP server")

	cache := syscache.New()
	defer cache.Close()

	if cfg.Sync.Address != "" {
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if cfg.Sync.Timeout > 0 {
			ctx, cancel = context.WithTimeout(c.Context, cfg.Sync.Timeout)
		} else {
			ctx, cancel = context.WithCancel(c.Context)
		}
		if _, err := cache.StartSync(ctx, cfg.Sync.Address); err != nil {
			// The cache is still usable locally; a later cache-sync call can retry.
			logger.Warnf("Initial sync with %s failed: %v", cfg.Sync.Address, err)
		}
		cancel()
	}

	s := server.NewMCPServer(
		"syscache",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("cache-get",
		mcp.WithDescription("Returns the cached value for a key as JSON {key, found, value}"),
		mcp.WithString("key", mcp.Required(), mcp.Description("The key to look up")),
	), tools.CacheGetHandler(cache))

	s.AddTool(mcp.NewTool("cache-insert",
		mcp.WithDescription("Stores a value, overwriting any existing value for the key"),
		mcp.WithString("key", mcp.Required(), mcp.Description("The key to store under")),
		mcp.WithString("value", mcp.Required(), mcp.Description("The value to store")),
	), tools.CacheInsertHandler(cache))

	s.AddTool(mcp.NewTool("cache-remove",
		mcp.WithDescription("Removes a key and returns its prior value as JSON {key, found, value}"),
		mcp.WithString("key", mcp.Required(), mcp.Description("The key to remove")),
	), tools.CacheRemoveHandler(cache))

	s.AddTool(mcp.NewTool("cache-snapshot",
		mcp.WithDescription("Returns every cached entry as a JSON object ordered by key"),
	), tools.CacheSnapshotHandler(cache))

	s.AddTool(mcp.NewTool("cache-sync",
		mcp.WithDescription(multiline(
			"Synchronizes the cache with a remote peer over WebSocket",
			"\nFunctionality:",
			"- Pushes every local entry to the peer in key order",
			"- Keeps applying entries sent by the peer until the server exits",
			"\nUsage notes:",
			"- The address must be a ws:// or wss:// URL",
			"- Inbound entries overwrite local values (last write wins)",
		)),
		mcp.WithString("address", mcp.Required(), mcp.Description("The peer URL, e.g. ws://127.0.0.1:7480/sync")),
	), tools.CacheSyncHandler(cache, cfg.Sync.Timeout))
	logger.Infof("Registered cache tools")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
		return err
	}
	return nil
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }
