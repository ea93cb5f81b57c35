// Package server exposes the HTTP surface: health and readiness probes, a
// status summary, Prometheus metrics and the EventSub webhook. It injects
// correlation IDs into request contexts for consistent logging.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanderwood/midgard/telemetry"
)

// NewMux returns the HTTP handler with all routes. eventsubHandler may be nil
// when the webhook isn't configured.
func NewMux(db *sql.DB, eventsubHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	mux.HandleFunc("/status", handleStatus(db))

	if eventsubHandler != nil {
		mux.Handle("/eventsub/callback", eventsubHandler)
	}

	// Correlation ID injector
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		telemetry.LoggerWithCorr(ctx).Debug("request start",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("component", "http"))

		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleStatus reports per-channel game state: active season, live session
// and open giveaways.
func handleStatus(db *sql.DB) http.HandlerFunc {
	type channelStatus struct {
		Channel       string `json:"channel"`
		Season        string `json:"season,omitempty"`
		SessionLive   bool   `json:"session_live"`
		OpenGiveaways int    `json:"open_giveaways"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.QueryContext(r.Context(), `
			SELECT c.name,
			       COALESCE(s.name, ''),
			       EXISTS (SELECT 1 FROM sessions se WHERE se.channel_id = c.id AND se.end_time IS NULL),
			       (SELECT COUNT(*) FROM follower_giveaways g WHERE g.channel_id = c.id AND g.winner_id IS NULL)
			FROM channels c
			LEFT JOIN seasons s ON s.channel_id = c.id AND s.end_date IS NULL
			ORDER BY c.name`)
		if err != nil {
			slog.Error("status query failed", slog.Any("err", err))
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		out := []channelStatus{}
		for rows.Next() {
			var cs channelStatus
			if err := rows.Scan(&cs.Channel, &cs.Season, &cs.SessionLive, &cs.OpenGiveaways); err != nil {
				http.Error(w, "scan failed", http.StatusInternalServerError)
				return
			}
			out = append(out, cs)
		}
		if err := rows.Err(); err != nil {
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, db *sql.DB, addr string, eventsubHandler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(db, eventsubHandler),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
