package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/keyfold/keyfold/internal/config/authd"
	"github.com/keyfold/keyfold/internal/domain/session"
	"github.com/keyfold/keyfold/internal/repository/memory"
	pg "github.com/keyfold/keyfold/internal/repository/postgres"
	"github.com/keyfold/keyfold/internal/security"
	"github.com/keyfold/keyfold/internal/services/auth"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/authd.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting authd", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(rootCtx) }()

	db, err := initDB(rootCtx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	var sessions session.Store
	switch cfg.Session.Backend {
	case "memory":
		ms := memory.NewSessionStore(cfg.Session.SweepInterval)
		defer ms.Close()
		sessions = ms
	default:
		sr := pg.NewSessionRepo(db)
		go sr.RunSweeper(rootCtx, cfg.Session.SweepInterval, logger)
		sessions = sr
	}

	users := pg.NewUserRepo(db)
	hasher := security.NewPasswordHasher(security.Argon2Params{
		MemoryKiB:   cfg.Hash.MemoryKiB,
		Iterations:  cfg.Hash.Iterations,
		Parallelism: cfg.Hash.Parallelism,
	})
	tokens := security.NewTokenProvider(security.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshSecret: cfg.Auth.RefreshSecret,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	uc := auth.NewUsecase(users, sessions, hasher, tokens)
	ctrl := auth.NewController(uc, users, auth.CookieOpts{
		Domain: cfg.Auth.CookieDomain,
		Path:   cfg.Auth.CookiePath,
		Secure: cfg.Auth.CookieSecure,
	}, logger)

	httpSrv := buildHTTPServer(cfg, ctrl, db)

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		httpErrCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)

	time.Sleep(100 * time.Millisecond)
	logger.Info("bye")
}
