// Command mondrian-blocks starts the Mondrian Blocks server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, catalog directory, the remote solver, replay pacing,
// logging, version output, and optional ngrok tunneling for external access.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mondrian-blocks/api"
	"github.com/wricardo/mondrian-blocks/game/catalog"
	"github.com/wricardo/mondrian-blocks/game/replay"
	"github.com/wricardo/mondrian-blocks/game/service"
	"github.com/wricardo/mondrian-blocks/game/session"
	"github.com/wricardo/mondrian-blocks/transport/apiclient"
	"github.com/wricardo/mondrian-blocks/transport/mcp"
	"github.com/wricardo/mondrian-blocks/transport/solver"
	"github.com/wricardo/mondrian-blocks/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Mondrian Blocks Server"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port          = flag.Int("port", 8080, "HTTP server port")
	host          = flag.String("host", "localhost", "HTTP server host")
	catalogDir    = flag.String("catalog-dir", envDefault("CATALOG_DIR", "catalogs"), "Directory containing block catalogs")
	solverURL     = flag.String("solver-url", envDefault("SOLVER_URL", solver.DefaultURL), "Remote solver endpoint")
	solverTimeout = flag.Duration("solver-timeout", solver.DefaultTimeout, "Timeout for one solver request")
	solverRetries = flag.Int("solver-retries", solver.DefaultRetries, "Retries for failed solver requests")
	replayDelay   = flag.Duration("replay-delay", replay.DefaultDelay, "Pause between replayed placements")
	logLevel      = flag.String("log-level", "info", "debug|info|warn|error")
	debug         = flag.Bool("debug", false, "Enable debug logging (same as -log-level debug)")
	version       = flag.Bool("version", false, "Show version information")
	ngrokEnabled  = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth     = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain   = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// envDefault returns the environment variable key, or fallback when unset.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                           # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -replay-delay 200ms       # Faster solution replay\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                 # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env before flag defaults are read from the environment again
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	// stdout carries the protocol in stdio mode
	out := io.Writer(os.Stdout)
	if isStdioMode(mode) {
		out = os.Stderr
	}
	logger := newLogger(out, *logLevel, *debug)
	slog.SetDefault(logger)

	if envErr == nil {
		logger.Info("loaded environment variables from .env file")
		applyEnvDefaults()
	} else if !os.IsNotExist(envErr) {
		logger.Warn("error loading .env file", "error", envErr)
	}

	logger.Info("starting", "app", AppName, "version", Version, "mode", mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := initializeServices(logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	switch {
	case isStdioMode(mode):
		err = runStdioMCPWithInternalServer(ctx, svcs, logger)
	case mode == "server" || mode == "http":
		err = runHTTPServer(ctx, svcs, logger)
	default:
		err = fmt.Errorf("unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
	if err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func isStdioMode(mode string) bool {
	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		return true
	}
	return false
}

// newLogger builds the process logger. debug wins over level.
func newLogger(w io.Writer, level string, debug bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: debug}))
}

// applyEnvDefaults re-reads environment fallbacks for flags left at their
// default, so values from .env apply too.
func applyEnvDefaults() {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["catalog-dir"] {
		*catalogDir = envDefault("CATALOG_DIR", *catalogDir)
	}
	if !set["solver-url"] {
		*solverURL = envDefault("SOLVER_URL", *solverURL)
	}
}

// services groups what the run modes need
type services struct {
	game     service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
}

// initializeServices wires the catalog and session managers, the solver
// client and the game service.
func initializeServices(logger *slog.Logger) (*services, error) {
	catalogManager, err := catalog.NewManager(*catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog manager: %w", err)
	}

	sessionManager := session.NewManager(
		session.WithReplayDelay(*replayDelay),
		session.WithLogger(logger),
	)

	solverClient := solver.NewClient(*solverURL,
		solver.WithTimeout(*solverTimeout),
		solver.WithRetries(*solverRetries),
		solver.WithLogger(logger),
	)

	hub := websocket.NewHub(logger)

	gameService := service.NewGameService(sessionManager, catalogManager, solverClient,
		service.WithLogger(logger),
		service.WithBroadcaster(hub),
	)

	logger.Info("services initialized",
		"catalog_dir", *catalogDir,
		"solver", solverClient.URL(),
		"replay_delay", *replayDelay,
	)
	return &services{game: gameService, sessions: sessionManager, hub: hub}, nil
}

// newMainRouter mounts the REST API and the /mcp proxy endpoint.
func newMainRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer runs the HTTP server, the WebSocket hub, session cleanup and,
// when enabled, an ngrok tunnel until ctx is cancelled.
func runHTTPServer(ctx context.Context, svcs *services, logger *slog.Logger) error {
	addr := fmt.Sprintf("%s:%d", *host, *port)
	apiServer := api.NewServer(svcs.game, svcs.hub, logger)
	mainRouter := newMainRouter(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: it would cut /ws connections
		IdleTimeout: 60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.hub.Run(ctx)
	})

	g.Go(func() error {
		sessionCleanupRoutine(ctx, svcs.sessions, logger)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("endpoints",
			"rest", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if ngrokShouldRun() {
		g.Go(func() error {
			runNgrokTunnel(ctx, mainRouter, logger)
			return nil
		})
	}

	err := g.Wait()
	logger.Info("server stopped")
	return err
}

// ngrokShouldRun checks the flag, then NGROK_ENABLED.
func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	env := os.Getenv("NGROK_ENABLED")
	return env == "true" || env == "1"
}

// runNgrokTunnel serves handler through a public ngrok endpoint until ctx ends.
// A missing token or a failed tunnel is logged and does not stop the server.
func runNgrokTunnel(ctx context.Context, handler http.Handler, logger *slog.Logger) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"rest", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws?session=<session_id>",
		"mcp", ngrokURL+"/mcp",
	)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within sessionMaxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, logger *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				logger.Info("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, svcs *services, logger *slog.Logger) error {
	externalURL := "http://localhost:8080"
	baseURL := externalURL

	logger.Info("checking for external API server", "url", externalURL)
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := apiclient.New(externalURL).Health(checkCtx)
	cancel()

	if err == nil {
		logger.Info("external API server found, using it for MCP", "url", externalURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		go svcs.hub.Run(ctx)
		go sessionCleanupRoutine(ctx, svcs.sessions, logger)

		httpServer := &http.Server{
			Handler: api.NewServer(svcs.game, svcs.hub, logger),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		logger.Info("internal HTTP server started", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
