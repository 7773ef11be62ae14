package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/qrstudio/api"
	"github.com/openclaw/qrstudio/config"
	"github.com/openclaw/qrstudio/export"
	"github.com/openclaw/qrstudio/render"
	"github.com/openclaw/qrstudio/session"
	"github.com/openclaw/qrstudio/store"
)

var version = "v0.3.0"

func main() {
	root := &cobra.Command{
		Use:   "qrstudio",
		Short: "QR code generator with logo overlay",
	}

	// --- serve command -------------------------------------------------------
	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the generator web UI and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	root.AddCommand(serveCmd)

	// --- generate / payload commands -----------------------------------------
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newPayloadCmd())

	// --- status command ------------------------------------------------------
	var statusAddr string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(statusAddr)
		},
	}
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8556", "Server HTTP address")
	root.AddCommand(statusCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrstudio %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// sessionDefaults converts the configured render defaults, rejecting values
// outside the dial bounds.
func sessionDefaults(d config.RenderDefaults) (session.Defaults, error) {
	opts, err := render.Options{
		Size:            d.Size,
		Margin:          d.Margin,
		Foreground:      d.Foreground,
		Background:      d.Background,
		ErrorCorrection: render.Level(d.ErrorCorrection),
		Format:          render.Format(d.Format),
	}.Normalize()
	if err != nil {
		return session.Defaults{}, err
	}
	if err := render.ValidateLogoPercent(d.LogoSize); err != nil {
		return session.Defaults{}, err
	}
	return session.Defaults{Options: opts, LogoPercent: d.LogoSize}, nil
}

// runServe is the main service entrypoint that wires all components together.
func runServe(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	defaults, err := sessionDefaults(cfg.Defaults)
	if err != nil {
		return fmt.Errorf("invalid render defaults: %w", err)
	}

	// 2. Setup logger
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting qrstudio", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir)

	// 3. Open export log
	var exports *store.ExportLog
	if cfg.ExportLog {
		exports, err = store.NewExportLog(cfg.ExportDBPath())
		if err != nil {
			return fmt.Errorf("open export log: %w", err)
		}
		defer exports.Close()
	}

	// 4. Create webhook sender
	webhook := export.NewWebhook(cfg.ExportWebhookURL, log)

	// 5. Session registry and janitor
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := render.NewRenderer()
	sessions := session.NewRegistry(renderer, defaults, cfg.SessionTTL.Duration, log)
	if cfg.SessionTTL.Duration > 0 {
		session.StartJanitor(ctx, sessions, cfg.SweepInterval.Duration, log)
	}

	// 6. Start HTTP server
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Renderer: renderer,
			Sessions: sessions,
			Defaults: defaults,
			Exports:  exports,
			Webhook:  webhook,
			Log:      log,
			Version:  version,
			Started:  time.Now(),
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("generator is running", "url", fmt.Sprintf("http://localhost:%d/", cfg.Port))

	// 7. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

// runStatus queries the server status endpoint.
func runStatus(addr string) error {
	resp, err := http.Get(addr + "/status")
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	fmt.Println(string(body))
	return nil
}
