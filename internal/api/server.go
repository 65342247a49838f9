package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/khaneliman/hypr-socket-watch/internal/config"
	"github.com/khaneliman/hypr-socket-watch/internal/dispatch"
	"github.com/khaneliman/hypr-socket-watch/internal/event"
	"github.com/khaneliman/hypr-socket-watch/internal/logger"
	"github.com/khaneliman/hypr-socket-watch/internal/version"
	"github.com/khaneliman/hypr-socket-watch/internal/watcher"
	"github.com/rs/zerolog"
)

// Update is one message on the live stream
type Update struct {
	Type    string            `json:"type"`
	Time    time.Time         `json:"time"`
	Event   *event.Event      `json:"event,omitempty"`
	Outcome *dispatch.Outcome `json:"outcome,omitempty"`
	Status  *Status           `json:"status,omitempty"`
}

// Status is the snapshot served by /api/status
type Status struct {
	State       watcher.State               `json:"state"`
	Monitor     string                      `json:"monitor"`
	Wallpapers  string                      `json:"wallpapers"`
	Uptime      string                      `json:"uptime"`
	Events      map[string]uint64           `json:"events"`
	Applied     uint64                      `json:"applied"`
	Failed      uint64                      `json:"failed"`
	LastEvent   *event.Event                `json:"last_event,omitempty"`
	LastOutcome map[string]dispatch.Outcome `json:"last_outcome"`
}

// StateFunc reports the read loop state
type StateFunc func() watcher.State

// Server represents the HTTP status server
type Server struct {
	router   *mux.Router
	cfg      *config.Config
	state    StateFunc
	upgrader websocket.Upgrader
	log      zerolog.Logger
	started  time.Time

	mu        sync.RWMutex
	events    map[string]uint64
	lastEvent *event.Event
	outcomes  map[string]dispatch.Outcome
	applied   uint64
	failed    uint64
	listeners []chan Update

	httpServer *http.Server
	closed     bool
}

// NewServer creates a new status server
func NewServer(cfg *config.Config, state StateFunc, log zerolog.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		cfg:    cfg,
		state:  state,
		upgrader: websocket.Upgrader{
			// Only local tools are expected to connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:      logger.WithComponent(log, "api"),
		started:  time.Now(),
		events:   make(map[string]uint64),
		outcomes: make(map[string]dispatch.Outcome),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/outcomes/{monitor}", s.handleOutcome).Methods("GET")
	api.HandleFunc("/stream", s.handleStream)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown is called. It returns nil without
// listening when Shutdown already ran.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info().Str("addr", addr).Msg("Status server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and ends every live stream
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	for _, ch := range s.listeners {
		close(ch)
	}
	s.listeners = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ObserveEvent matches watcher.EventObserver
func (s *Server) ObserveEvent(ev event.Event) {
	s.mu.Lock()
	s.events[ev.Kind.String()]++
	s.lastEvent = &ev
	s.mu.Unlock()

	s.broadcast(Update{Type: "event", Time: time.Now(), Event: &ev})
}

// ObserveOutcome matches dispatch.Observer
func (s *Server) ObserveOutcome(o dispatch.Outcome) {
	s.mu.Lock()
	s.outcomes[o.Monitor] = o
	if o.OK() {
		s.applied++
	} else {
		s.failed++
	}
	s.mu.Unlock()

	s.broadcast(Update{Type: "outcome", Time: time.Now(), Outcome: &o})
}

// Snapshot returns the current status
func (s *Server) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Monitor:     s.cfg.Monitor,
		Wallpapers:  s.cfg.Wallpapers,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Events:      make(map[string]uint64, len(s.events)),
		Applied:     s.applied,
		Failed:      s.failed,
		LastOutcome: make(map[string]dispatch.Outcome, len(s.outcomes)),
	}
	if s.state != nil {
		st.State = s.state()
	}
	for k, v := range s.events {
		st.Events[k] = v
	}
	for k, v := range s.outcomes {
		st.LastOutcome[k] = v
	}
	if s.lastEvent != nil {
		ev := *s.lastEvent
		st.LastEvent = &ev
	}
	return st
}

// subscribe adds a listener for updates
func (s *Server) subscribe() chan Update {
	ch := make(chan Update, 32)
	s.mu.Lock()
	s.listeners = append(s.listeners, ch)
	s.mu.Unlock()
	return ch
}

// unsubscribe removes a listener
func (s *Server) unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, listener := range s.listeners {
		if listener == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// broadcast never blocks the caller; slow clients miss updates
func (s *Server) broadcast(u Update) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, listener := range s.listeners {
		select {
		case listener <- u:
		default:
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	monitor := mux.Vars(r)["monitor"]

	s.mu.RLock()
	o, ok := s.outcomes[monitor]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "no outcome for monitor", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := s.subscribe()

	// Drain client frames so a disconnect ends the stream.
	go func() {
		defer s.unsubscribe(updates)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap := s.Snapshot()
	if err := conn.WriteJSON(Update{Type: "status", Time: time.Now(), Status: &snap}); err != nil {
		s.log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	for u := range updates {
		if err := conn.WriteJSON(u); err != nil {
			s.log.Debug().Err(err).Msg("WebSocket write error")
			return
		}
	}
}
