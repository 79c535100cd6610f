// Package main provides the player daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/mybeats/internal/api/connect"
	"github.com/osa030/mybeats/internal/app/catalog"
	"github.com/osa030/mybeats/internal/app/loader"
	"github.com/osa030/mybeats/internal/app/mediasession"
	"github.com/osa030/mybeats/internal/app/player"
	"github.com/osa030/mybeats/internal/infra/audio"
	"github.com/osa030/mybeats/internal/infra/config"
	"github.com/osa030/mybeats/internal/infra/logger"
	"github.com/osa030/mybeats/internal/infra/mpris"
	"github.com/osa030/mybeats/internal/infra/store"
)

var (
	app        = kingpin.New("mybeats-server", "mybeats headless music player")
	configPath = app.Flag("config", "Path to config file").Default("config/config.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// library command
	libraryCmd = app.Command("library", "Print the music library summary and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		File:   "",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path, catalog.Options{
		ArtworkBaseURL: cfg.Artwork.BaseURL,
		DefaultCover:   cfg.Artwork.DefaultURL,
	})
	if err != nil {
		zlog.Fatal().Msgf("Failed to load library: %v", err)
	}

	// Handle library command
	if command == libraryCmd.FullCommand() {
		printLibrary(cat)
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg, cat); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, cat *catalog.Catalog) error {
	st, err := store.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			zlog.Error().Msgf("Failed to close store: %v", err)
		}
	}()

	element := audio.NewStreamElement(audio.StreamConfig{
		RetryMax:          cfg.Audio.RetryMax,
		Timeout:           cfg.AudioTimeout(),
		RequestsPerSecond: cfg.Audio.RequestsPerSecond,
		MaxBytes:          cfg.Audio.MaxBytes,
		TickInterval:      cfg.TimeUpdateInterval(),
	})
	defer element.Close()

	// Media session (optional)
	var surface mediasession.Surface
	if !cfg.MediaSession.Disabled {
		s, err := mpris.Connect(cfg.MediaSession.BusName)
		if err != nil {
			zlog.Warn().Msgf("Media session unavailable: %v", err)
		} else {
			defer s.Close()
			surface = s
		}
	}

	// Create player
	playerMgr := player.New(cfg, player.Deps{
		Catalog: cat,
		Store:   st,
		Element: element,
		Loader:  loader.New(cfg.Audio.BaseURL, cfg.Audio.Formats),
		Surface: surface,
	})
	playerMgr.Initialize()

	// Create RPC service
	playerService := apiconnect.NewPlayerService(playerMgr)

	var opts []connect.HandlerOption
	if cfg.Server.ControlToken != "" {
		opts = append(opts, connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.Server.ControlToken)))
	} else {
		zlog.Warn().Msg("No control token configured, remote control is open")
	}

	// Create HTTP mux
	mux := http.NewServeMux()
	playerPath, playerHandler := playerService.Handler(opts...)
	mux.Handle(playerPath, playerHandler)

	// Determine server address
	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start player
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	playerDone := make(chan struct{})
	go func() {
		defer close(playerDone)
		if err := playerMgr.Run(ctx); err != nil {
			zlog.Error().Msgf("Player stopped: %v", err)
		}
	}()

	// Follow library edits
	if cfg.Catalog.Watch {
		go func() {
			if err := cat.Watch(ctx, cfg.Catalog.Path); err != nil {
				zlog.Warn().Msgf("Library watch stopped: %v", err)
			}
		}()
	}

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-playerDone:
		zlog.Info().Msg("Player ended, shutting down...")
	case err := <-serverErrCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// End subscriptions first so Shutdown does not wait on open streams
	playerService.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	cancel()
	<-playerDone
	playerMgr.Close()

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// printLibrary prints artists and album song counts.
func printLibrary(cat *catalog.Catalog) {
	fmt.Println("Library:")
	for _, artist := range cat.Artists() {
		fmt.Printf("  %s\n", artist.Artist)
		for _, album := range artist.Albums {
			fmt.Printf("    %-30s %3d songs\n", album.Album, len(album.Songs))
		}
	}
	fmt.Printf("Total: %d songs\n", len(cat.AllSongs()))
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
