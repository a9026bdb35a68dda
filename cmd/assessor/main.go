package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/api"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/assess"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/config"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/events"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/leaderboard"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/progress"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("assessor starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scoring rules
	rs := rules.Default()
	if cfg.RulesPath != "" {
		loaded, err := rules.LoadFile(cfg.RulesPath)
		if err != nil {
			slog.Error("failed to load ruleset", "path", cfg.RulesPath, "error", err)
			os.Exit(1)
		}
		rs = loaded
		slog.Info("ruleset loaded", "path", cfg.RulesPath, "version", rs.Version)
	}

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// NATS
	eventsClient, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventsClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Leaderboard cache (optional — assessments work without Redis, just
	// slower leaderboard reads)
	var board *leaderboard.Cache
	if cfg.RedisAddr != "" {
		board, err = leaderboard.NewCache(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer board.Close()
		slog.Info("leaderboard cache ready", "addr", cfg.RedisAddr)
	} else {
		slog.Warn("redis not configured, leaderboard reads fall back to database")
	}

	// Assessment pipeline
	tracker := progress.NewTracker(db)
	assessor := assess.New(rs, db, tracker, eventsClient, boardOrNil(board), slog.Default())

	// Subscribe to completed transcripts
	if err := eventsClient.Subscribe(events.SubjectTranscriptCompleted, assessor.HandleTranscriptCompleted); err != nil {
		slog.Error("failed to subscribe to transcript events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, assessor, db, rankerOrNil(board), slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce readiness
	if err := eventsClient.Publish("negotiation.assessor.ready", map[string]any{
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"port":          cfg.Port,
		"rules_version": rs.Version,
	}); err != nil {
		slog.Warn("failed to publish readiness", "error", err)
	}

	slog.Info("assessor ready", "port", cfg.Port, "rules_version", rs.Version)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("assessor stopped")
}

// boardOrNil avoids handing the assessor a non-nil interface wrapping a nil
// *leaderboard.Cache.
func boardOrNil(board *leaderboard.Cache) assess.Leaderboard {
	if board == nil {
		return nil
	}
	return board
}

func rankerOrNil(board *leaderboard.Cache) api.Ranker {
	if board == nil {
		return nil
	}
	return board
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
