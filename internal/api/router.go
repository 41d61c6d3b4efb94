// Package api implements the HTTP API of the user-management service.
package api

import (
	"encoding/json"
	"net/http"

	"qa-harness/internal/users"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Prefix is where the API is mounted
const Prefix = "/api"

// Handler holds all API handler state.
type Handler struct {
	svc *users.Service
	log *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *users.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Routes mounts the health and user routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// NewRouter builds the service router with the common middleware stack and
// the API mounted under Prefix.
func NewRouter(h *Handler, log *zap.Logger) *chi.Mux {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLog(log))
	r.Use(chimw.Recoverer)
	r.Route(Prefix, h.Routes)
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Detail writes an error body of the form {"detail": ...}.
func Detail(w http.ResponseWriter, status int, detail any) {
	JSON(w, status, map[string]any{"detail": detail})
}
