// Package http serves a browsing session over JSON, plus health, readiness,
// and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/vtec-browser/internal/domain"
	"github.com/couchcryptid/vtec-browser/internal/session"
	"github.com/couchcryptid/vtec-browser/internal/view"
)

const maxBodyBytes = 1 << 16

// Browser is the session the API drives.
type Browser interface {
	sharedobs.ReadinessChecker
	Navigate(url string) session.Location
	Back() (session.Location, bool)
	Forward() (session.Location, bool)
	StepEvent(delta int) session.Location
	SelectTab(tab string) session.Location
	SelectUpdate(update string) session.Location
	SelectRadar(site, product string, scan time.Time) session.Location
	Location() session.Location
	Screen() view.Snapshot
}

// Server exposes the session API and the health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	browser    Browser
	logger     *slog.Logger
}

// NewServer creates an HTTP server for browser.
func NewServer(addr string, browser Browser, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		browser: browser,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(browser))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /event/{rest...}", s.handleLegacyEvent)
	mux.HandleFunc("GET /api/resolve", s.handleResolve)
	mux.HandleFunc("GET /api/location", s.handleLocation)
	mux.HandleFunc("GET /api/screen", s.handleScreen)
	mux.HandleFunc("POST /api/navigate", s.handleNavigate)
	mux.HandleFunc("POST /api/back", s.handleBack)
	mux.HandleFunc("POST /api/forward", s.handleForward)
	mux.HandleFunc("POST /api/step", s.handleStep)
	mux.HandleFunc("POST /api/tab", s.handleTab)
	mux.HandleFunc("POST /api/update", s.handleUpdate)
	mux.HandleFunc("POST /api/radar", s.handleRadar)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleLegacyEvent permanently redirects old path-style links to the
// canonical query form.
func (s *Server) handleLegacyEvent(w http.ResponseWriter, r *http.Request) {
	res, err := session.Resolve(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	http.Redirect(w, r, "/"+res.URL, http.StatusMovedPermanently)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, errors.New("url parameter is required"))
		return
	}
	res, err := session.Resolve(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleLocation(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.browser.Location())
}

func (s *Server) handleScreen(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.browser.Screen())
}

type navigateRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.browser.Navigate(req.URL))
}

type moveResponse struct {
	session.Location
	Moved bool `json:"moved"`
}

func (s *Server) handleBack(w http.ResponseWriter, _ *http.Request) {
	loc, moved := s.browser.Back()
	sharedobs.WriteJSON(w, http.StatusOK, moveResponse{Location: loc, Moved: moved})
}

func (s *Server) handleForward(w http.ResponseWriter, _ *http.Request) {
	loc, moved := s.browser.Forward()
	sharedobs.WriteJSON(w, http.StatusOK, moveResponse{Location: loc, Moved: moved})
}

type stepRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, errors.New("delta must be non-zero"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.browser.StepEvent(req.Delta))
}

type tabRequest struct {
	Tab    string `json:"tab"`
	Update string `json:"update"`
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Tab == "" {
		writeError(w, http.StatusBadRequest, errors.New("tab is required"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.browser.SelectTab(req.Tab))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Update == "" {
		writeError(w, http.StatusBadRequest, errors.New("update is required"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.browser.SelectUpdate(req.Update))
}

type radarRequest struct {
	Site    string `json:"site"`
	Product string `json:"product"`
	Time    string `json:"time"` // YYYYMMDDHHmm
}

func (s *Server) handleRadar(w http.ResponseWriter, r *http.Request) {
	var req radarRequest
	if !decode(w, r, &req) {
		return
	}
	var scan time.Time
	if req.Time != "" {
		t, err := time.Parse(domain.RadarTimeLayout, req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid time %q", req.Time))
			return
		}
		scan = t
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.browser.SelectRadar(req.Site, req.Product, scan))
}

// decode reads a JSON request body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
