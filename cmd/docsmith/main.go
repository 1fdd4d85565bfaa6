// Command docsmith runs the document composition and rendering server
// described by SPEC_FULL.md: a tool-call (MCP JSON-RPC 2.0) surface and
// a REST-ish HTTP surface over the same session/template/fragment
// domain model.
//
// Optional environment variables (see internal/config for the full
// list and precedence rules):
//
//	DOCSMITH_CONFIG       - path to a docsmith.toml config file
//	DOCSMITH_DATA_ROOT    - on-disk data root (sessions/, storage/, docs/)
//	DOCSMITH_TRANSPORT    - "stdio" (default) or "http"; the serve/http subcommand overrides it
//	DOCSMITH_LOG_LEVEL    - debug, info, warn, error (default: info)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/auth"
	"github.com/docsmith/docsmith/internal/blobstore"
	"github.com/docsmith/docsmith/internal/config"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/httpapi"
	"github.com/docsmith/docsmith/internal/mcp"
	plotengine "github.com/docsmith/docsmith/internal/plot"
	renderengine "github.com/docsmith/docsmith/internal/rendering"
	"github.com/docsmith/docsmith/internal/sessionmgr"
	"github.com/docsmith/docsmith/internal/sessionstore"
	"github.com/docsmith/docsmith/internal/tools/authoring"
	"github.com/docsmith/docsmith/internal/tools/discovery"
	plottools "github.com/docsmith/docsmith/internal/tools/plot"
	renderingtools "github.com/docsmith/docsmith/internal/tools/rendering"
	"github.com/docsmith/docsmith/internal/tools/sessions"
	"github.com/docsmith/docsmith/internal/validation"
)

// Version is set via ldflags at build time.
var Version = "dev"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "docsmith: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docsmith",
		Short:         "Multi-tenant document composition and rendering server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to docsmith.toml (default: search DOCSMITH_CONFIG, ./docsmith.toml, ~/.config/docsmith/docsmith.toml)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newHTTPCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docsmith version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "docsmith %s\n", Version)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio (JSON-RPC 2.0)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg.Transport.Mode = "stdio"
			return runStdio(cmd.Context(), cfg, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "log docs-root asset changes on disk (dev convenience; restart to pick them up)")
	return cmd
}

func newHTTPCmd() *cobra.Command {
	var port, host string
	var watch bool
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Run the Streamable HTTP MCP transport plus the REST surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg.Transport.Mode = "http"
			if port != "" {
				cfg.Transport.Port = port
			}
			if host != "" {
				cfg.Transport.Host = host
			}
			return runHTTP(cmd.Context(), cfg, watch)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen address (overrides config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "log docs-root asset changes on disk (dev convenience; restart to pick them up)")
	return cmd
}

// app bundles every domain collaborator wired from cfg, shared by both
// the stdio and HTTP entry points.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	catalogue *assets.Catalogue
	sessions  *sessionmgr.Manager
	engine    *renderengine.Engine
	plots     *plotengine.Service
	blobs     *blobstore.Store
	images    *validation.ImageURLValidator
	gate      *auth.Gate
	registry  *mcp.Registry
}

// buildApp wires every domain collaborator from cfg: the asset
// catalogue loaded from <data_root>/docs, the session store at
// <data_root>/sessions, the blob store at <data_root>/storage, the
// plot, rendering, and validation services layered on top, and the
// full MCP tool registry. No auth.Verifier is configured here — token
// verification is an external collaborator (see SPEC_FULL.md's OUT OF SCOPE)
// and every call resolves to auth.PublicGroup until one is wired in.
func buildApp(cfg *config.Config) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	catalogue := assets.NewCatalogue()
	docsRoot := filepath.Join(cfg.Storage.DataRoot, "docs")
	if err := assets.Load(assets.Layout{Root: docsRoot}, catalogue); err != nil {
		return nil, fmt.Errorf("loading assets from %s: %w", docsRoot, err)
	}

	sessionsDir := filepath.Join(cfg.Storage.DataRoot, "sessions")
	store, err := sessionstore.Open(sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("opening session store at %s: %w", sessionsDir, err)
	}
	sessionManager := sessionmgr.New(store, catalogue, logger)

	blobsDir := filepath.Join(cfg.Storage.DataRoot, "storage")
	blobs, err := blobstore.Open(blobsDir)
	if err != nil {
		return nil, fmt.Errorf("opening blob store at %s: %w", blobsDir, err)
	}
	plots := plotengine.New(plotengine.SVGRenderer{}, blobstore.NewPlotStore(blobs), logger)

	engine := renderengine.New(catalogue, blobs, nil, nil, logger)

	images := validation.NewImageURLValidator(
		cfg.Images.MaxSizeMB,
		time.Duration(cfg.Images.TimeoutSeconds)*time.Second,
	)

	gate := auth.New(nil)
	registry := mcp.NewRegistry()
	registerTools(registry, gate, catalogue, sessionManager, engine, plots, images)

	return &app{
		cfg:       cfg,
		logger:    logger,
		catalogue: catalogue,
		sessions:  sessionManager,
		engine:    engine,
		plots:     plots,
		blobs:     blobs,
		images:    images,
		gate:      gate,
		registry:  registry,
	}, nil
}

func registerTools(
	registry *mcp.Registry,
	gate *auth.Gate,
	catalogue *assets.Catalogue,
	sessionManager *sessionmgr.Manager,
	engine *renderengine.Engine,
	plots *plotengine.Service,
	images *validation.ImageURLValidator,
) {
	dispatcher := dispatch.New(gate)
	discovery.Register(registry, dispatcher, catalogue)
	sessions.Register(registry, dispatcher, sessionManager)
	authoring.Register(registry, dispatcher, sessionManager, catalogue, images, plots)
	renderingtools.Register(registry, dispatcher, sessionManager, engine)
	plottools.Register(registry, dispatcher, plots)
}

func runStdio(ctx context.Context, cfg *config.Config, watch bool) error {
	application, err := buildApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if watch {
		go watchAssets(ctx, cfg, application.logger)
	}

	version := cfg.Server.Version
	if Version != "dev" {
		version = Version
	}
	application.logger.Info("starting docsmith", "version", version, "transport", "stdio", "data_root", cfg.Storage.DataRoot)

	server := mcp.NewServer(application.registry, mcp.ServerInfo{
		Name:    cfg.Server.Name,
		Version: version,
	}, application.logger)
	return server.Run(ctx)
}

func runHTTP(ctx context.Context, cfg *config.Config, watch bool) error {
	application, err := buildApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if watch {
		go watchAssets(ctx, cfg, application.logger)
	}

	version := cfg.Server.Version
	if Version != "dev" {
		version = Version
	}

	mcpServer := mcp.NewServer(application.registry, mcp.ServerInfo{
		Name:    cfg.Server.Name,
		Version: version,
	}, application.logger)
	httpTransport := mcp.NewHTTPServer(mcpServer, cfg.Transport.CORSOrigins, application.logger)

	restServer := httpapi.NewServer(
		application.catalogue,
		application.sessions,
		application.engine,
		application.plots,
		application.blobs,
		application.gate,
		cfg.Images.StockDir,
		cfg.Transport.PublicBaseURL,
		cfg.Transport.CORSOrigins,
		application.logger,
	)

	mux := http.NewServeMux()
	mux.Handle("/", restServer.Handler())
	mux.Handle("/mcp", httpTransport.Handler())
	mux.Handle("/health", httpTransport.Handler())

	addr := cfg.Transport.Host + ":" + cfg.Transport.Port
	application.logger.Info("starting docsmith", "version", version, "transport", "http", "addr", addr, "data_root", cfg.Storage.DataRoot)

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// watchAssets logs docs-root changes for the life of ctx; it does not
// hot-swap the already-loaded Catalogue (see assets.Watch's doc
// comment), so a change still requires a restart to take effect.
func watchAssets(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	docsRoot := filepath.Join(cfg.Storage.DataRoot, "docs")
	err := assets.Watch(ctx, assets.Layout{Root: docsRoot}, logger, func(event fsnotify.Event) {
		logger.Info("restart docsmith to pick up docs changes", "path", event.Name)
	})
	if err != nil && err != context.Canceled {
		logger.Warn("asset watcher stopped", "error", err)
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
