package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storyreel/storyreel-agent/internal/api"
	"github.com/storyreel/storyreel-agent/internal/compiler"
	"github.com/storyreel/storyreel-agent/internal/config"
	"github.com/storyreel/storyreel-agent/internal/db"
	"github.com/storyreel/storyreel-agent/internal/logging"
	"github.com/storyreel/storyreel-agent/internal/playback"
	"github.com/storyreel/storyreel-agent/internal/render"
	"github.com/storyreel/storyreel-agent/internal/studio"
	"github.com/storyreel/storyreel-agent/internal/timeline"
	"github.com/storyreel/storyreel-agent/internal/ui"
	"github.com/storyreel/storyreel-agent/internal/upload"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting storyreel agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := studio.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  STORYREEL AGENT v%-7s                 ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	studioSvc := studio.NewService(repo, logger)

	var comp compiler.Compiler
	if cfg.CompilerURL() != "" {
		comp = compiler.NewHTTPClient(cfg.CompilerURL(), cfg.CompilerToken(), logger)
		logger.Info("render compiler configured", "base_url", cfg.CompilerURL())
	} else {
		comp = compiler.NewStubCompiler(logger)
		logger.Info("no compiler URL configured, using stub compiler")
	}

	orchestrator := render.NewOrchestrator(repo, comp, cfg.CompilerPollInterval(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orchestrator.Run(ctx)

	uploads, err := upload.NewStore(cfg.MediaDir(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize upload store: %w", err)
	}
	media := playback.NewMediaServer(cfg.MediaDir(), logger)

	sessions := playback.NewSessions(func(projectID string) func() float64 {
		return func() float64 {
			scenes, err := repo.ListScenes(context.Background(), projectID)
			if err != nil {
				logger.Error("failed to read scenes for preview clock", "project_id", projectID, "error", err)
				return 0
			}
			return timeline.TotalDuration(scenes)
		}
	}, logger)
	defer sessions.Close()

	apiServer := api.NewServer(api.ServerConfig{
		Port:          cfg.Port(),
		StudioService: studioSvc,
		Repository:    repo,
		Orchestrator:  orchestrator,
		Uploads:       uploads,
		Media:         media,
		Playback:      sessions,
		Logger:        logger,
		StartTime:     startTime,
		Version:       config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			StudioService: studioSvc,
			Orchestrator:  orchestrator,
			Logger:        logger,
			OnOpenEditor: func() error {
				logger.Info("open editor requested from tray (browser launch not implemented in v0)")
				return nil
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo studio.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
