package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/sshmcp/internal/audit"
	"github.com/michaelbrown/sshmcp/internal/audit/sqlite"
	"github.com/michaelbrown/sshmcp/internal/config"
	"github.com/michaelbrown/sshmcp/internal/httpapi"
	"github.com/michaelbrown/sshmcp/internal/logging"
	"github.com/michaelbrown/sshmcp/internal/remote"
	"github.com/michaelbrown/sshmcp/internal/tools"
)

var httpFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server on stdio, or on HTTP when --http (or http.addr) is set.

Over HTTP the MCP endpoint is /mcp; /healthz and the audit API under
/api/invocations are served alongside it.

Examples:
  sshmcp serve
  sshmcp serve --http :8765`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&httpFlag, "http", "", "Listen address for streamable HTTP (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}

// app bundles what every transport needs.
type app struct {
	cfg    config.Config
	logger  zerolog.Logger
	gateway *tools.Gateway
	store   audit.Store // nil when auditing is disabled
	feed    *audit.Feed
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func newApp(cfg config.Config) (*app, error) {
	logger := logging.New(cfg.Log, "sshmcp")

	a := &app{cfg: cfg, logger: logger, feed: audit.NewFeed()}
	if cfg.Audit.Enabled {
		store, err := sqlite.Open(cfg.Audit.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		a.store = store
	}

	d := tools.NewDispatcher(remote.NewSSHRunner(cfg.SSH))
	recorded := audit.Middleware(a.store, a.feed, logger)
	srv := tools.NewServer(cfg, d, server.WithToolHandlerMiddleware(recorded))
	a.gateway = tools.NewGateway(srv, recorded(d.Handle))
	return a, nil
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return newApp(cfg)
}

func runStdio(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return a.serveStdio()
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.HTTP.Addr
	if httpFlag != "" {
		addr = httpFlag
	}
	if addr == "" {
		return a.serveStdio()
	}
	return a.serveHTTP(addr)
}

func (a *app) serveStdio() error {
	a.logger.Info().
		Str("transport", "stdio").
		Bool("audit", a.store != nil).
		Msgf("Basphere SSH MCP Server running (%s)", a.cfg.SSH.Target())

	if err := a.gateway.ServeStdio(server.WithErrorLogger(logging.StdLogger(a.logger))); err != nil {
		return fmt.Errorf("serving stdio: %w", err)
	}
	return nil
}

func (a *app) serveHTTP(addr string) error {
	srv := httpapi.New(a.cfg, a.gateway, a.store, a.feed, a.logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	a.logger.Info().
		Str("transport", "http").
		Str("addr", addr).
		Bool("audit", a.store != nil).
		Msgf("Basphere SSH MCP Server running (%s)", a.cfg.SSH.Target())

	return srv.Start(addr)
}
