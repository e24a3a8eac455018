package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-trim/internal/api"
	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/playback"
	"github.com/heimdex/heimdex-trim/internal/ui"
)

var serveHeadless bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local agent: HTTP API and system tray",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveHeadless, "headless", false, "do not show the system tray")
}

func runServe(parent context.Context) error {
	startTime := time.Now()

	logger := logging.NewLogger(level())
	logger.Info("starting heimdex trim agent", "version", Version, "data_dir", cfg.DataDir(), "media_dir", cfg.MediaDir())

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	authToken, err := ensureAuthToken(parent, a.repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║  HEIMDEX TRIM v%-59s║\n", Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-44d║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-61s║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	probeCtx, probeCancel := context.WithTimeout(parent, 15*time.Second)
	if caps, err := a.doctor.Refresh(probeCtx); err != nil {
		logger.Warn("initial toolchain probe failed", "error", err)
	} else {
		logger.Info("toolchain detected",
			"ffmpeg", caps.FFmpegVersion,
			"ffprobe", caps.HasFFprobe,
		)
	}
	probeCancel()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Version:        Version,
		Workflow:       a.workflow,
		Picker:         a.picker,
		Library:        a.library,
		Repository:     a.repo,
		PlaybackServer: playback.NewServer(logger, cfg.MediaDir(), cfg.CacheDir()),
		Doctor:         a.doctor,
		Metrics:        a.metrics,
		Logger:         logger,
		StartTime:      startTime,
		BaseContext:    ctx,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	if serveHeadless || cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Workflow: a.workflow,
			Library:  a.library,
			Logger:   logger,
			OnQuit:   quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	a.workflow.Reset()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
