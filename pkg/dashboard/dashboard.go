// Package dashboard serves a read-only HTTP view over the setup and trade
// stores, plus Prometheus metrics and a health probe.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/martxel/setra/pkg/setup"
	"github.com/martxel/setra/pkg/trade"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router *chi.Mux
	server *http.Server
	setups setup.Store
	trades trade.Store
	log    func(v ...interface{})
}

func New(log func(v ...interface{}), addr string, setups setup.Store, trades trade.Store) *Server {
	s := &Server{
		router: chi.NewRouter(),
		setups: setups,
		trades: trades,
		log:    log,
	}
	s.router.Use(middleware.Recoverer)
	s.router.Get("/healthz", s.health)
	s.router.Get("/api/setups", s.listSetups)
	s.router.Get("/api/trades", s.listTrades)
	s.router.Handle("/metrics", promhttp.Handler())
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errC := make(chan error, 1)
	go func() {
		errC <- s.server.ListenAndServe()
	}()
	select {
	case err := <-errC:
		return fmt.Errorf("dashboard: server stopped: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// listSetups returns the stored setups for a day, today by default.
// Day format: 2006-01-02.
func (s *Server) listSetups(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if q := r.URL.Query().Get("day"); q != "" {
		d, err := time.Parse("2006-01-02", q)
		if err != nil {
			http.Error(w, "invalid day", http.StatusBadRequest)
			return
		}
		day = d
	}
	stored, err := s.setups.List(day)
	if err != nil {
		s.log(fmt.Errorf("dashboard: couldn't list setups: %w", err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if stored == nil {
		// An empty day is a list, not null.
		stored = []*setup.Stored{}
	}
	s.writeJSON(w, stored)
}

func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	finished := r.URL.Query().Get("finished") == "true"
	to := time.Now().UTC().Add(24 * time.Hour)
	from := to.Add(-365 * 24 * time.Hour)
	trades, err := s.trades.List(from, to, finished)
	if err != nil {
		s.log(fmt.Errorf("dashboard: couldn't list trades: %w", err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []*trade.Trade{}
	}
	s.writeJSON(w, trades)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log(fmt.Errorf("dashboard: couldn't encode response: %w", err))
	}
}
