// Package server exposes wind levels over HTTP and runs one interactive
// globe session per websocket client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rcrowley/go-metrics"

	"windglobe/config"
	"windglobe/regions"
	"windglobe/tiling"
	"windglobe/wind"
)

// Server serves one wind store to many clients.
type Server struct {
	settings  config.Settings
	store     *wind.Store
	describer regions.Describer
	log       *slog.Logger
	metrics   metrics.Registry
	upgrader  websocket.Upgrader

	clientsMutex sync.RWMutex
	clients      map[*websocket.Conn]*sync.Mutex
}

// New returns a server over store. describer may be nil.
func New(settings config.Settings, store *wind.Store, describer regions.Describer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		settings:  settings,
		store:     store,
		describer: describer,
		log:       logger,
		metrics:   metrics.NewRegistry(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Metrics returns the server's metrics registry.
func (s *Server) Metrics() metrics.Registry { return s.metrics }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /levels", s.handleLevels)
	mux.HandleFunc("GET /tile/{level}/{z}/{x}/{y}", s.handleTile)
	mux.HandleFunc("GET /sample", s.handleSample)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves Handler on the configured port until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.settings.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		s.CloseClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("server starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

// CloseClients sends a close frame to every client.
func (s *Server) CloseClients() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	for conn, mutex := range s.clients {
		mutex.Lock()
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		mutex.Unlock()
	}
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wind.Manifest{Levels: s.store.Levels()})
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	defer metrics.GetOrRegisterTimer("http.tile", s.metrics).UpdateSince(time.Now())

	var v [4]int
	for k, name := range []string{"level", "z", "x", "y"} {
		n, err := strconv.Atoi(r.PathValue(name))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad "+name+": "+r.PathValue(name))
			return
		}
		v[k] = n
	}

	g, err := s.store.Load(r.Context(), v[0])
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	tile, err := tiling.Cut(g, v[1], v[2], v[3])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tile)
}

type sampleResponse struct {
	Level   int      `json:"level"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	U       *float64 `json:"u,omitempty"`
	V       *float64 `json:"v,omitempty"`
	Speed   *float64 `json:"speed,omitempty"`
	Missing bool     `json:"missing,omitempty"`
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	defer metrics.GetOrRegisterTimer("http.sample", s.metrics).UpdateSince(time.Now())

	q := r.URL.Query()
	level := s.settings.Data.InitialLevel
	if q.Has("level") {
		n, err := strconv.Atoi(q.Get("level"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad level")
			return
		}
		level = n
	}
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required numbers")
		return
	}

	g, err := s.store.Load(r.Context(), level)
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	resp := sampleResponse{Level: level, Lat: lat, Lon: lon}
	if vec, ok := g.Sample(lat, lon); ok {
		speed := vec.Speed()
		resp.U, resp.V, resp.Speed = &vec.U, &vec.V, &speed
	} else {
		resp.Missing = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	metrics.WriteJSONOnce(s.metrics, w)
}

func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, wind.ErrUnknownLevel) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error("level load failed", "err", err)
	writeError(w, http.StatusInternalServerError, "level unavailable")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
