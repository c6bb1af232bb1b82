package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rhuss/vzero/pkg/client"
	"github.com/rhuss/vzero/pkg/config"
	"github.com/rhuss/vzero/pkg/debug"
	"github.com/rhuss/vzero/pkg/render"
	"github.com/rhuss/vzero/pkg/storage"
	"github.com/rhuss/vzero/pkg/storage/memory"
	"github.com/rhuss/vzero/pkg/storage/postgres"
)

// globalFlags are shared by all subcommands.
type globalFlags struct {
	configPath string
	plain      bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "vzero",
		Short:         "Chat API client with live stream rendering",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file")
	root.PersistentFlags().BoolVar(&flags.plain, "plain", false, "disable colors and syntax highlighting")

	root.AddCommand(newChatCmd(flags))
	root.AddCommand(newSendCmd(flags))
	root.AddCommand(newReplayCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	return root
}

// env holds what a command needs after configuration is loaded.
type env struct {
	cfg      *config.Config
	store    storage.Store
	renderer *render.Renderer
	metrics  *http.Server
}

// setup loads configuration, initializes logging and opens the store and
// metrics endpoint. The returned env must be closed.
func setup(ctx context.Context, flags *globalFlags) (*env, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)

	e := &env{cfg: cfg, renderer: newRenderer(flags.plain)}

	switch cfg.Storage.Type {
	case config.StorageMemory:
		e.store = memory.New(cfg.Storage.MaxSize)
	case config.StoragePostgres:
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		e.store = store
	}
	debug.Log("config", "storage configured", "type", cfg.Storage.Type)

	if cfg.Observability.Metrics.Enabled {
		if err := e.serveMetrics(); err != nil {
			e.close()
			return nil, err
		}
	}
	return e, nil
}

func (e *env) serveMetrics() error {
	m := e.cfg.Observability.Metrics
	ln, err := net.Listen("tcp", m.Addr)
	if err != nil {
		return fmt.Errorf("listening for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+m.Path, promhttp.Handler())
	e.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("metrics endpoint listening", "addr", ln.Addr().String(), "path", m.Path)
		if err := e.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics endpoint failed", "error", err)
		}
	}()
	return nil
}

func (e *env) client() (*client.Client, error) {
	if err := e.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return client.New(client.Config{
		BaseURL: e.cfg.API.BaseURL,
		APIKey:  e.cfg.API.APIKey,
		Timeout: e.cfg.API.Timeout,
	}), nil
}

func (e *env) close() {
	if e.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		e.metrics.Shutdown(ctx)
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}
}

func newRenderer(plain bool) *render.Renderer {
	if plain || !isTerminal(os.Stdout) {
		return render.New(render.PlainCapabilities())
	}
	return render.New(render.DefaultCapabilities(render.DefaultTheme()))
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
