// Package monitor serves the HTTP debug interface for a running
// pipeline: liveness, the latest track emission, and trajectory
// visualisations rendered from the observation store.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/banshee-data/sightline/internal/monitoring"
	sqlitestore "github.com/banshee-data/sightline/internal/storage/sqlite"
	"github.com/banshee-data/sightline/internal/vision"
)

// TrackSource exposes the latest tracker emission for monitoring reads.
type TrackSource interface {
	LatestTracks() []vision.TrackSnapshot
}

// WebServer handles the HTTP interface for monitoring the tracker.
type WebServer struct {
	address string
	tracks  TrackSource
	store   *sqlitestore.Store // may be nil when recording is disabled
	runID   string
	server  *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Tracks  TrackSource
	Store   *sqlitestore.Store
	RunID   string
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		tracks:  config.Tracks,
		store:   config.Store,
		runID:   config.RunID,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// Start begins serving in a goroutine and blocks until ctx is
// cancelled, then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("monitor: HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("monitor: serve: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("monitor: shutdown: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("monitor: force close: %v", err)
		}
	}
	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/tracks", ws.handleTracks)
	mux.HandleFunc("/debug/tracks/plot", ws.handleTrackPlot)
	mux.HandleFunc("/debug/tracks/chart", ws.handleTrackChart)
	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleTracks returns the latest emission as JSON, keyed by track id
// only in the sense that order carries no meaning.
func (ws *WebServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	if ws.tracks == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no tracker attached")
		return
	}
	snaps := ws.tracks.LatestTracks()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"count":  len(snaps),
		"tracks": snaps,
	})
}

// resolveRun picks the run to visualise: the run query param, then the
// live run, then the most recent run in the store.
func (ws *WebServer) resolveRun(r *http.Request) (string, error) {
	if run := r.URL.Query().Get("run"); run != "" {
		return run, nil
	}
	if ws.runID != "" {
		return ws.runID, nil
	}
	return ws.store.LatestRunID()
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) loadPaths(w http.ResponseWriter, r *http.Request) ([]sqlitestore.TrackPath, bool) {
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusNotFound, "recording disabled, no observation store")
		return nil, false
	}
	runID, err := ws.resolveRun(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	paths, err := ws.store.TrackPaths(runID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("load track paths: %v", err))
		return nil, false
	}
	if len(paths) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no observations for run "+runID)
		return nil, false
	}
	return paths, true
}

// handleTrackPlot renders the run's trajectories as a PNG.
func (ws *WebServer) handleTrackPlot(w http.ResponseWriter, r *http.Request) {
	paths, ok := ws.loadPaths(w, r)
	if !ok {
		return
	}
	wt, err := renderTrackPlot(paths)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = wt.WriteTo(w)
}

// handleTrackChart renders the run's trajectories as an interactive
// ECharts page.
func (ws *WebServer) handleTrackChart(w http.ResponseWriter, r *http.Request) {
	paths, ok := ws.loadPaths(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderTrackChart(w, paths); err != nil {
		monitoring.Logf("monitor: render chart: %v", err)
	}
}
