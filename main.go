// Command quest-for-water runs the Quest for Water game server.
//
// Commands:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket
//     push and an /mcp endpoint, optionally behind an ngrok tunnel
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "validate" checks rule set files
//  4. "version" prints the build version
//
// Every flag can also come from the environment or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/quest-for-water/api"
	"github.com/wricardo/quest-for-water/game/config"
	"github.com/wricardo/quest-for-water/game/engine"
	"github.com/wricardo/quest-for-water/game/scoreboard"
	"github.com/wricardo/quest-for-water/game/service"
	"github.com/wricardo/quest-for-water/game/session"
	"github.com/wricardo/quest-for-water/transport/mcp"
	"github.com/wricardo/quest-for-water/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Quest for Water Server"
)

// Background maintenance periods
const (
	cleanupInterval = 1 * time.Hour
	syncInterval    = 5 * time.Second
)

func main() {
	loadEnv()

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadEnv loads a .env file if it exists
func loadEnv() {
	if err := godotenv.Load(); err != nil {
		// Only log if it's not a "file not found" error
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}
}

// newApp builds the command tree. Flags on the root are inherited by every command.
func newApp() *cli.Command {
	serverCmd := &cli.Command{
		Name:    "server",
		Aliases: []string{"http"},
		Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
		Action:  runServer,
	}

	return &cli.Command{
		Name:    "quest-for-water",
		Usage:   "Carry water home before the clock runs out",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "scoreboard", Value: "scoreboard.jsonl", Usage: "Scoreboard log file (empty keeps results in memory)", Sources: cli.EnvVars("SCOREBOARD_FILE")},
			&cli.DurationFlag{Name: "tick-interval", Value: time.Second, Usage: "Wall-clock duration of one game second", Sources: cli.EnvVars("TICK_INTERVAL")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Drop sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: runServer,
		Commands: []*cli.Command{
			serverCmd,
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "External API to reuse when reachable", Sources: cli.EnvVars("QUEST_API_URL")},
				},
				Action: runStdioMCP,
			},
			{
				Name:      "validate",
				Usage:     "Validate rule set files",
				ArgsUsage: "<config-file> [config-file...]",
				Action:    runValidate,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// options is the resolved process configuration
type options struct {
	host           string
	port           int
	configDir      string
	sessionsDir    string
	scoreboardPath string
	tickInterval   time.Duration
	sessionTTL     time.Duration
	debug          bool

	ngrokEnabled bool
	ngrokAuth    string
	ngrokDomain  string
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:           cmd.String("host"),
		port:           int(cmd.Int("port")),
		configDir:      cmd.String("config-dir"),
		sessionsDir:    cmd.String("sessions-dir"),
		scoreboardPath: cmd.String("scoreboard"),
		tickInterval:   cmd.Duration("tick-interval"),
		sessionTTL:     cmd.Duration("session-ttl"),
		debug:          cmd.Bool("debug"),
		ngrokEnabled:   cmd.Bool("ngrok"),
		ngrokAuth:      cmd.String("ngrok-auth"),
		ngrokDomain:    cmd.String("ngrok-domain"),
	}
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func setupLogging(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

// services is everything a running server owns
type services struct {
	game     service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
	results  scoreboard.Store
}

// initializeServices wires config, sessions, scoreboard and the game service.
// Persisted sessions are loaded and their clocks resumed.
func initializeServices(ctx context.Context, opts options) (*services, error) {
	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(opts.sessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	var results scoreboard.Store = scoreboard.NewMemoryStore()
	if opts.scoreboardPath != "" {
		fileStore, err := scoreboard.NewFileStore(opts.scoreboardPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open scoreboard: %w", err)
		}
		results = fileStore
	}

	hub := websocket.NewHub()
	gameService := service.NewGameService(sessionManager, configManager,
		service.WithNotifier(hub),
		service.WithScoreboard(results),
		service.WithTickInterval(opts.tickInterval),
	)
	gameService.ResumeClocks(ctx)

	return &services{
		game:     gameService,
		sessions: sessionManager,
		hub:      hub,
		results:  results,
	}, nil
}

// Close stops clocks, flushes sessions and closes the scoreboard
func (s *services) Close() error {
	var errs []error
	if err := s.game.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.sessions.SaveAllSessions(); err != nil {
		errs = append(errs, err)
	}
	if err := s.results.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// newHandler mounts the API and the /mcp proxy on one mux
func newHandler(svc *services, baseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svc.game, svc.hub))
	mainRouter.Handle("/mcp", mcp.NewClient(baseURL).HTTPHandler())
	return mainRouter
}

// runServer starts the HTTP server with REST API, WebSocket hub, and an /mcp
// proxy endpoint. If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts.debug)
	log.Printf("Starting %s v%s", AppName, Version)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := initializeServices(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		svc.hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, svc.sessions, opts.sessionTTL, cleanupInterval)
	}()
	go func() {
		defer wg.Done()
		filesystemSyncRoutine(ctx, svc.sessions, syncInterval)
	}()

	addr := opts.addr()
	handler := newHandler(svc, "http://"+addr)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if opts.ngrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-serveErr:
		cancel()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// runNgrokTunnel serves handler through ngrok until ctx is cancelled
func runNgrokTunnel(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Printf("Using custom ngrok domain: %s", opts.ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Printf("[SESSION] cleaned up %d expired sessions", removed)
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory when their files are deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := manager.PruneOrphaned(); pruned > 0 {
				log.Printf("[SESSION] filesystem sync pruned %d orphaned sessions", pruned)
			}
		}
	}
}

// runStdioMCP runs an MCP stdio server. It reuses an external API when one
// answers on --api-url; otherwise it starts an internal HTTP API bound to a
// random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	// stdout carries the protocol
	log.SetOutput(os.Stderr)
	setupLogging(opts.debug)

	baseURL := cmd.String("api-url")
	log.Printf("Checking for external API server at %s...", baseURL)

	if !apiReachable(baseURL) {
		log.Printf("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svc.Close()

		hubCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go svc.hub.Run(hubCtx)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		httpServer := &http.Server{Handler: api.NewServer(svc.game, svc.hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + internalAddr
	} else {
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiReachable reports whether a Quest for Water API answers at baseURL
func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runValidate loads and validates each rule set named on the command line
func runValidate(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("usage: %s validate <config-file> [config-file...]", cmd.Root().Name)
	}

	out := cmd.Root().Writer
	failed := 0
	for _, file := range files {
		cfg, err := engine.LoadGameConfig(file)
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", file, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "✓ %s: %q, %dx%d grid, %d water, difficulties:", file, cfg.Name, cfg.GridSize, cfg.GridSize, cfg.StartingWater)
		for _, d := range engine.Difficulties {
			s, _ := cfg.Settings(d)
			fmt.Fprintf(out, " %s=%ds/%.0f%%", d, s.TimeBudget, s.DirtyChance*100)
		}
		fmt.Fprintln(out)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d config files are invalid", failed, len(files))
	}
	return nil
}
