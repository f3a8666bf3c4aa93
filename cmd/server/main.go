package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/ytlin/thsr-reminder/api/handlers"
	"github.com/ytlin/thsr-reminder/pkg/reminder"
)

func main() {
	var (
		port         = flag.String("port", "8080", "Server port")
		settingsPath = flag.String("settings", "", "Path of the settings file")
		player       = flag.String("player", "", "Audio player command (e.g. \"mpg123 -q\")")
		interval     = flag.Duration("interval", 10*time.Second, "Tick interval")
	)
	flag.Parse()

	// Check for the settings path in environment if not provided
	if *settingsPath == "" {
		*settingsPath = os.Getenv("THSR_REMINDER_SETTINGS")
	}
	if *settingsPath == "" {
		log.Fatal("Settings file required (use -settings flag or THSR_REMINDER_SETTINGS env var)")
	}

	config := reminder.DefaultConfig()
	config.SettingsPath = *settingsPath
	config.PollInterval = *interval
	if *player != "" {
		config.PlayerCommand = strings.Fields(*player)
	}

	svc := reminder.New(config, nil)
	defer svc.Close()

	// Create HTTP server
	r := mux.NewRouter()
	h := handlers.NewHandler(svc)
	h.RegisterRoutes(r)

	// Add middleware
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Reminder loop starting (settings %s)", *settingsPath)
		return svc.Run(ctx)
	})

	g.Go(func() error {
		log.Printf("Server starting on port %s", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Exited with error: %v", err)
	}
	log.Println("Server stopped")
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
