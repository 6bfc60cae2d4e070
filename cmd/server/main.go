package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"padel-scoring/internal/auth"
	"padel-scoring/internal/config"
	"padel-scoring/internal/handlers"
	"padel-scoring/internal/middleware"
	"padel-scoring/internal/scorer"
	"padel-scoring/internal/scoring"
	"padel-scoring/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logger.Error("failed to initialize store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer s.Close()
	logger.Info("using store", "backend", cfg.Store.Backend)

	engine := scoring.NewEngine(scoring.WithSetsToWin(cfg.Scoring.SetsToWin))
	sc := scorer.NewManager(s,
		scorer.WithEngine(engine),
		scorer.WithLogger(logger.With("component", "scorer")),
		scorer.WithAutosave(cfg.Scoring.Autosave),
		scorer.WithSessionTTL(cfg.Scoring.SessionTTL),
	)
	go sc.Run(ctx, time.Minute)

	authn := auth.New(cfg.AuthSecret,
		auth.WithDevMode(cfg.DevMode),
		auth.WithAdmins(cfg.AdminEmails...),
	)
	if cfg.DevMode {
		logger.Warn("DEV_MODE enabled - authentication disabled")
	}
	if len(cfg.AdminEmails) > 0 {
		logger.Info("configured admins", "count", len(cfg.AdminEmails))
	}

	h := handlers.New(s, sc, authn, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// CORS sits in front of auth so preflight requests are answered unauthenticated.
	handler := middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.Logging(logger),
		middleware.CORS(cfg.CORSOrigin),
		authn.Middleware,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "port", cfg.Port, "corsOrigin", cfg.CORSOrigin, "setsToWin", engine.SetsToWin())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
