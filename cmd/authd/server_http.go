package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	config "github.com/keyfold/keyfold/internal/config/authd"
	"github.com/keyfold/keyfold/internal/obs"
	pg "github.com/keyfold/keyfold/internal/repository/postgres"
	"github.com/keyfold/keyfold/internal/services/auth"
)

func buildHTTPServer(cfg *config.Config, ctrl *auth.Controller, db *pg.DB) *http.Server {
	mux := http.NewServeMux()
	ctrl.Register(mux)

	mux.Handle("/metrics", obs.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		hctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := db.Pool.Ping(hctx); err != nil {
			http.Error(w, "unhealthy: db", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := otelhttp.NewHandler(mux, "authd.http")

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}
