// Package devserver is a local stand-in for the remote ordering service,
// serving the same three endpoints the client talks to. The menu and the
// order window are held in memory and scriptable, which makes it usable
// both for manual end-to-end runs and as a contract fixture.
package devserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/frietavond/bestel/internal/api"
	"github.com/frietavond/bestel/internal/menu"
)

// Window is the scriptable order-window state.
type Window struct {
	IsOpen      bool
	Deadline    *time.Time
	NextOpening *time.Time
}

// Server carries the in-memory state behind the HTTP handlers.
type Server struct {
	mu     sync.Mutex
	menu   map[string][]menu.RawItem
	window Window
	orders []api.Payload
}

// New creates a server with the given menu, initially closed.
func New(items map[string][]menu.RawItem) *Server {
	return &Server{menu: items}
}

// SetWindow replaces the order-window state.
func (s *Server) SetWindow(w Window) {
	s.mu.Lock()
	s.window = w
	s.mu.Unlock()
}

// Orders returns a copy of every payload received so far.
func (s *Server) Orders() []api.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Payload(nil), s.orders...)
}

// Router builds the Chi router with the client-facing endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "ngrok-skip-browser-warning"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/api/menu", s.getMenu)
	r.Get("/api/order/status", s.getStatus)
	r.Post("/api/order/guest", s.postOrder)

	return r
}

// --- Handlers ---

func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.menu)
}

type statusResponse struct {
	IsOpen      bool       `json:"isOpen"`
	NextOpening *time.Time `json:"nextOpening,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	win := s.window
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, statusResponse{
		IsOpen:      win.IsOpen,
		NextOpening: win.NextOpening,
		Deadline:    win.Deadline,
	})
}

func (s *Server) postOrder(w http.ResponseWriter, r *http.Request) {
	var p api.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if p.UserName == "" || len(p.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_name and items are required"})
		return
	}

	s.mu.Lock()
	open := s.window.IsOpen
	if open {
		s.orders = append(s.orders, p)
	}
	s.mu.Unlock()

	if !open {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "ordering is closed"})
		return
	}

	log.Printf("order received from %s (%d items)", p.UserName, len(p.Items))
	writeJSON(w, http.StatusCreated, map[string]string{"status": "received"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
