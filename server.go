package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server keeps the latest combined dataset in memory and refreshes it on a
// daily schedule or on demand. Refreshes are single-flight; readers see the
// previous dataset until the new one is swapped in.
type Server struct {
	app *App

	refreshMu sync.Mutex
	mu        sync.RWMutex
	records   []CombinedRecord
	analysis  Analysis
	updatedAt time.Time
}

// Serve runs the HTTP API with a scheduled daily refresh.
func (app *App) Serve() error {
	s := &Server{app: app}

	if err := s.refresh(context.Background()); err != nil {
		log.Printf("Initial refresh failed: %v", err)
	}

	scheduler := gocron.NewScheduler(app.Location)
	if _, err := scheduler.Every(1).Day().At(app.Config.RefreshAt).Do(func() {
		if err := s.refresh(context.Background()); err != nil {
			log.Printf("Scheduled refresh failed: %v", err)
		}
	}); err != nil {
		return err
	}
	scheduler.StartAsync()
	log.Printf("Scheduled daily refresh at %s", app.Config.RefreshAt)

	r := mux.NewRouter()
	r.HandleFunc("/api/combined", s.handleCombined).Methods(http.MethodGet)
	r.HandleFunc("/api/analysis", s.handleAnalysis).Methods(http.MethodGet)
	r.HandleFunc("/api/update", s.handleUpdate).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	log.Printf("Listening on %s", app.Config.Listen)
	return newHTTPServer(app.Config.Listen, r).ListenAndServe()
}

// newHTTPServer builds the serve-mode server with timeouts suited to a
// long-running process. The write timeout stays above the fetch-phase
// deadline because POST /api/update runs a full refresh before answering.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

func (s *Server) refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	result, analysis, err := s.app.RunPipeline(ctx)
	if err != nil {
		return err
	}

	if err := writeCombinedFile(s.app.Config.OutputCSV, result.Records, s.app.Location); err != nil {
		return err
	}

	s.mu.Lock()
	s.records = result.Records
	s.analysis = analysis
	s.updatedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Server) handleCombined(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	records := s.records
	s.mu.RUnlock()

	if records == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if err := writeCombined(w, records, s.app.Location); err != nil {
		log.Printf("Error streaming combined CSV: %v", err)
	}
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	analysis := s.analysis
	updatedAt := s.updatedAt
	s.mu.RUnlock()

	if updatedAt.IsZero() {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Analysis
		UpdatedAt string `json:"updated_at"`
	}{analysis, updatedAt.Format(time.RFC3339)})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.refresh(r.Context()); err != nil {
		log.Printf("Manual refresh failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"message":"update completed"}`))
}
