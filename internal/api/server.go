// Package api serves simulations over HTTP.
package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synheart/synheart-physio/internal/analysis"
	"github.com/synheart/synheart-physio/internal/catalog"
	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/export"
	"github.com/synheart/synheart-physio/internal/models"
	"github.com/synheart/synheart-physio/internal/physio"
	"github.com/synheart/synheart-physio/internal/synth"
)

const maxBodyBytes = 1 << 20

// Config holds the API server configuration
type Config struct {
	Host       string
	Port       int
	Token      string // empty disables authentication
	AcceptGzip bool
}

// Server is the HTTP simulation API.
type Server struct {
	config     Config
	gen        *physio.Generator
	presets    *catalog.Registry
	writer     export.Writer
	idempotent *IdempotencyStore
	server     *http.Server
	logger     *slog.Logger
	mu         sync.RWMutex
	stats      Stats
}

// Stats holds server statistics
type Stats struct {
	TotalRuns       int `json:"total_runs"`
	TotalDuplicates int `json:"total_duplicates"`
	TotalErrors     int `json:"total_errors"`
}

// NewServer creates the API server. writer may be nil; when set every
// generated bundle is also exported through it.
func NewServer(config Config, gen *physio.Generator, presets *catalog.Registry, writer export.Writer) *Server {
	if gen == nil {
		gen = physio.NewGenerator(nil)
	}
	if presets == nil {
		presets = catalog.NewRegistry()
	}
	return &Server{
		config:     config,
		gen:        gen,
		presets:    presets,
		writer:     writer,
		idempotent: NewIdempotencyStore(0),
		logger:     slog.Default(),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/simulate", s.handleSimulate)
	mux.HandleFunc("/v1/presets", s.handlePresets)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger = ctxlog.FromContext(ctx)
	if s.config.Token == "" {
		s.logger.Warn("api authentication disabled: no token configured")
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", s.GetAddress())
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
}

// GetStats returns current server statistics
func (s *Server) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Server) countError() {
	s.mu.Lock()
	s.stats.TotalErrors++
	s.mu.Unlock()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "synheart-physio",
		"endpoints": []string{"POST /v1/simulate", "GET /v1/presets", "GET /v1/stats", "GET /health"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetStats())
}

type presetView struct {
	*catalog.Preset
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	names := s.presets.List()
	views := make([]presetView, 0, len(names))
	for _, name := range names {
		p, err := s.presets.Get(name)
		if err != nil {
			continue
		}
		views = append(views, presetView{Preset: p, Warnings: p.Check()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": views})
}

type simulateResponse struct {
	Status  string            `json:"status"`
	Receipt models.Receipt    `json:"receipt"`
	Summary *analysis.Summary `json:"summary,omitempty"`
	Bundle  *physio.Bundle    `json:"bundle,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.validateAuth(r) {
		s.countError()
		s.writeError(w, http.StatusUnauthorized, "invalid or missing authorization token")
		return
	}
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		s.countError()
		s.writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		if cached, ok := s.idempotent.Get(key); ok {
			s.replay(w, cached)
			return
		}
	}

	body, err := s.readBody(r)
	if err != nil {
		s.countError()
		s.writeError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}

	var req models.SimulateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.countError()
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.countError()
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bundle, err := s.run(req)
	if err != nil {
		s.countError()
		var paramErr *synth.ParamError
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &paramErr):
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	runID := uuid.NewString()
	if s.writer != nil {
		if err := s.writer.Write(export.New(runID, bundle)); err != nil {
			s.countError()
			s.writeError(w, http.StatusInternalServerError, "failed to write export: "+err.Error())
			return
		}
	}

	receipt := models.NewReceipt(runID, bundle.Preset, bundle.Seed, map[string]int{
		string(synth.ModalityECG): bundle.ECG.Len(),
		string(synth.ModalityEEG): bundle.EEG.Len(),
		string(synth.ModalityEDA): bundle.EDA.Len(),
	})
	resp := render(req, receipt, bundle)

	if key != "" {
		s.idempotent.Put(key, receipt, req)
	}
	s.mu.Lock()
	s.stats.TotalRuns++
	s.mu.Unlock()

	s.logger.Info("simulation served", "run_id", runID, "preset", bundle.Preset, "seed", bundle.Seed)
	writeJSON(w, http.StatusOK, resp)
}

// replay answers a repeated Idempotency-Key by regenerating the original
// run from its recorded seed.
func (s *Server) replay(w http.ResponseWriter, cached cachedRun) {
	bundle, err := s.run(cached.request)
	if err != nil {
		s.countError()
		s.writeError(w, http.StatusInternalServerError, "failed to regenerate run: "+err.Error())
		return
	}
	s.mu.Lock()
	s.stats.TotalDuplicates++
	s.mu.Unlock()

	resp := render(cached.request, cached.receipt, bundle)
	resp.Receipt.Duplicate = true
	writeJSON(w, http.StatusOK, resp)
}

func render(req models.SimulateRequest, receipt models.Receipt, bundle physio.Bundle) simulateResponse {
	resp := simulateResponse{Status: "ok", Receipt: receipt}
	if req.Include == "summary" {
		summary := analysis.Summarize(bundle)
		resp.Summary = &summary
	} else {
		resp.Bundle = &bundle
	}
	return resp
}

func (s *Server) run(req models.SimulateRequest) (physio.Bundle, error) {
	var opts []physio.Option
	if req.Seed != nil {
		opts = append(opts, physio.WithSeed(*req.Seed))
	}
	if req.Duration != nil {
		opts = append(opts, physio.WithDuration(*req.Duration))
	}

	if req.Custom != nil {
		c := req.Custom
		return s.gen.Run(c.Label, physio.Settings{
			HeartRate:   c.HeartRate,
			Frequencies: c.Frequencies,
			SCRNumber:   c.SCRNumber,
		}, opts...)
	}

	p, err := s.presets.Get(req.Preset)
	if err != nil {
		return physio.Bundle{}, err
	}
	return p.Run(s.gen, opts...)
}

func (s *Server) validateAuth(r *http.Request) bool {
	if s.config.Token == "" {
		return true
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return false
	}

	return parts[1] == s.config.Token
}

func (s *Server) readBody(r *http.Request) ([]byte, error) {
	var reader io.Reader = r.Body

	if r.Header.Get("Content-Encoding") == "gzip" {
		if !s.config.AcceptGzip {
			return nil, fmt.Errorf("gzip request bodies are not enabled")
		}
		gzReader, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	return io.ReadAll(io.LimitReader(reader, maxBodyBytes))
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
