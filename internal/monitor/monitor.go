// Package monitor serves the live state of a transcription run over HTTP.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/cwbudde/algo-transcribe/analysis"
	"github.com/cwbudde/algo-transcribe/song"
	"github.com/cwbudde/algo-transcribe/transcriber"
)

// Status is the body of GET /status.
type Status struct {
	RunID       string  `json:"run_id"`
	Generation  int     `json:"generation"`
	Generations int     `json:"generations"`
	BestFitness float64 `json:"best_fitness"`
	ElapsedSec  float64 `json:"elapsed_seconds"`
	Done        bool    `json:"done"`
}

// Monitor collects generation reports and serves them.
type Monitor struct {
	runID       string
	generations int
	start       time.Time

	mu         sync.RWMutex
	generation int
	best       song.Song
	history    []analysis.Stats
	done       bool

	srv *http.Server
}

// New returns a monitor for a run of the given number of generations.
func New(runID string, generations int) *Monitor {
	return &Monitor{
		runID:       runID,
		generations: generations,
		start:       time.Now(),
		generation:  -1,
		best:        song.New(),
	}
}

// Observe records one generation. It matches transcriber.Config.OnGeneration.
func (m *Monitor) Observe(r transcriber.GenerationReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation = r.Generation
	m.history = append(m.history, r.Stats)
	if len(m.history) == 1 || r.Best.Fitness > m.best.Fitness {
		m.best = r.Best.Clone()
	}
}

// SetBest replaces the reported best song, e.g. after refinement.
func (m *Monitor) SetBest(s song.Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.best = s.Clone()
}

// Finish marks the run as complete.
func (m *Monitor) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
}

// Status returns a snapshot of the run state.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		RunID:       m.runID,
		Generation:  m.generation,
		Generations: m.generations,
		BestFitness: m.best.Fitness,
		ElapsedSec:  time.Since(m.start).Seconds(),
		Done:        m.done,
	}
}

// Handler returns the CORS-enabled router.
func (m *Monitor) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/status", m.handleStatus).Methods("GET")
	router.HandleFunc("/best", m.handleBest).Methods("GET")
	router.HandleFunc("/history", m.handleHistory).Methods("GET")
	return cors.Default().Handler(router)
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, m.Status())
}

func (m *Monitor) handleBest(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	best := m.best.Clone()
	m.mu.RUnlock()
	if best.Notes == nil {
		best.Notes = []song.Note{}
	}
	writeJSON(w, best)
}

func (m *Monitor) handleHistory(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	hist := make([]analysis.Stats, len(m.history))
	copy(hist, m.history)
	m.mu.RUnlock()
	writeJSON(w, hist)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Start serves the monitor on addr in the background and returns the bound
// address.
func (m *Monitor) Start(addr string) (string, error) {
	if m.srv != nil {
		return "", errors.New("monitor already started")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	m.srv = &http.Server{Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = m.srv.Serve(ln) }()
	return ln.Addr().String(), nil
}

// Shutdown stops a started server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
