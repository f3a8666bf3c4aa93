package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ytlin/thsr-reminder/pkg/reminder"
)

func main() {
	var (
		settingsPath = flag.String("settings", "", "Path of the settings file")
		player       = flag.String("player", "", "Audio player command (e.g. \"mpg123 -q\")")
		interval     = flag.Duration("interval", 10*time.Second, "Tick interval")
		verbose      = flag.Bool("verbose", false, "Turn on verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Fall back to environment variable if the path is not provided
	if *settingsPath == "" {
		*settingsPath = os.Getenv("THSR_REMINDER_SETTINGS")
	}
	if *settingsPath == "" {
		slog.Error("Settings file required (use -settings flag or THSR_REMINDER_SETTINGS env var)")
		os.Exit(1)
	}

	config := reminder.DefaultConfig()
	config.SettingsPath = *settingsPath
	config.PollInterval = *interval
	if *player != "" {
		config.PlayerCommand = strings.Fields(*player)
	}

	svc := reminder.New(config, logger)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting reminder loop", "settings", *settingsPath, "interval", *interval)
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Reminder loop failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Reminder stopped")
}
