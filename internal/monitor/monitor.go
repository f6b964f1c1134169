// Package monitor provides an optional, strictly observational HTTP
// server: health, progress, and Prometheus-text metrics, patterned
// after the teacher's gorilla/mux router and its HealthCheck/
// GetMetrics handlers. Nothing it exposes feeds back into scoring.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/relicsort/engine/internal/log"
)

// Counters tracks run-wide instrumentation the metrics endpoint
// reports, mirroring the teacher's GetMetrics text-exposition shape.
type Counters struct {
	mu                sync.Mutex
	vesselsProcessed  int64
	triplesEnumerated int64
	pairsVisited      int64
	heapInsertions    int64
	heapEvictions     int64
}

func (c *Counters) AddVesselsProcessed(n int64)  { c.mu.Lock(); c.vesselsProcessed += n; c.mu.Unlock() }
func (c *Counters) AddTriplesEnumerated(n int64) { c.mu.Lock(); c.triplesEnumerated += n; c.mu.Unlock() }
func (c *Counters) AddPairsVisited(n int64)      { c.mu.Lock(); c.pairsVisited += n; c.mu.Unlock() }
func (c *Counters) AddHeapInsertions(n int64)    { c.mu.Lock(); c.heapInsertions += n; c.mu.Unlock() }
func (c *Counters) AddHeapEvictions(n int64)     { c.mu.Lock(); c.heapEvictions += n; c.mu.Unlock() }

func (c *Counters) snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{
		vesselsProcessed:  c.vesselsProcessed,
		triplesEnumerated: c.triplesEnumerated,
		pairsVisited:      c.pairsVisited,
		heapInsertions:    c.heapInsertions,
		heapEvictions:     c.heapEvictions,
	}
}

// ProgressState is the last reported "k of N vessels processed".
type ProgressState struct {
	mu    sync.RWMutex
	done  int
	total int
	phase string
}

func (p *ProgressState) Set(done, total int, phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done, p.total, p.phase = done, total, phase
}

func (p *ProgressState) get() (int, int, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.done, p.total, p.phase
}

// Server is the optional monitor HTTP server.
type Server struct {
	httpServer *http.Server
	Counters   *Counters
	Progress   *ProgressState
}

// NewServer builds a monitor server bound to addr, with routes for
// /healthz, /progress, and /metrics.
func NewServer(addr string) *Server {
	s := &Server{
		Counters: &Counters{},
		Progress: &ProgressState{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/progress", s.handleProgress).Methods("GET")
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Serve runs the server until ctx is cancelled, then shuts it down
// gracefully, mirroring the teacher's signal-driven shutdown in
// cmd/app/main.go.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("monitor server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("monitor server forced shutdown", "error", err.Error())
			return err
		}
		log.Info("monitor server stopped gracefully")
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	done, total, phase := s.Progress.get()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"vessel":%d,"total":%d,"phase":%q}`, done, total, phase)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	c := s.Counters.snapshot()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "relicsort_vessels_processed_total %d\n", c.vesselsProcessed)
	fmt.Fprintf(w, "relicsort_triples_enumerated_total %d\n", c.triplesEnumerated)
	fmt.Fprintf(w, "relicsort_pairs_visited_total %d\n", c.pairsVisited)
	fmt.Fprintf(w, "relicsort_heap_insertions_total %d\n", c.heapInsertions)
	fmt.Fprintf(w, "relicsort_heap_evictions_total %d\n", c.heapEvictions)
}
