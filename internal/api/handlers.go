package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"qa-harness/internal/users"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in users.CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	u, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("user created", zap.Stringer("id", u.ID))
	JSON(w, http.StatusCreated, u)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, u)
}

// UpdateUser handles PUT /users/{id}; fields absent from the body keep
// their stored value.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var in users.UpdateInput
	if !h.decode(w, r, &in) {
		return
	}
	u, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("user deleted", zap.Stringer("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// userID parses the {id} URL parameter. A malformed id cannot name a stored
// user, so it is reported as not found.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, users.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// decode reads a JSON body into dst, answering 422 when it cannot.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	field := users.FieldError{Loc: []string{"body"}, Msg: "invalid JSON body"}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field = users.FieldError{
			Loc: []string{"body", typeErr.Field},
			Msg: fmt.Sprintf("expected %s", typeErr.Type),
		}
	}
	h.writeError(w, r, &users.ValidationError{Fields: []users.FieldError{field}})
	return false
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *users.ValidationError
	switch {
	case errors.As(err, &verr):
		Detail(w, http.StatusUnprocessableEntity, verr.Fields)
	case errors.Is(err, users.ErrNotFound):
		Detail(w, http.StatusNotFound, "User not found")
	case errors.Is(err, users.ErrDuplicateEmail):
		Detail(w, http.StatusConflict, "User with this email already exists")
	default:
		h.log.Error("request failed",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		Detail(w, http.StatusInternalServerError, "Internal server error")
	}
}
