// Package users holds the user resource of the CRUD service: the model, its
// validation rules and the storage contract.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no user has the requested id
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email is already taken
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

// MaxNameLength bounds User.Name in characters
const MaxNameLength = 255

// User is a stored user
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput is the body of a create request
type CreateInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

// UpdateInput is the body of an update request; nil fields are left as is
type UpdateInput struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

// Store persists users. Create and Update return ErrDuplicateEmail on an
// email conflict; Get, Update and Delete return ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	Truncate(ctx context.Context) error
}

// FieldError describes one invalid field
type FieldError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

// ValidationError lists every invalid field of a request body
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, strings.Join(f.Loc, ".")+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Loc: []string{"body", field}, Msg: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate checks a create request
func (in CreateInput) Validate() error {
	verr := &ValidationError{}
	if msg, ok := checkEmail(in.Email); !ok {
		verr.add("email", msg)
	}
	if msg, ok := checkName(in.Name); !ok {
		verr.add("name", msg)
	}
	return verr.orNil()
}

// Validate checks the fields present in an update request
func (in UpdateInput) Validate() error {
	verr := &ValidationError{}
	if in.Email != nil {
		if msg, ok := checkEmail(*in.Email); !ok {
			verr.add("email", msg)
		}
	}
	if in.Name != nil {
		if msg, ok := checkName(*in.Name); !ok {
			verr.add("name", msg)
		}
	}
	return verr.orNil()
}

func checkEmail(email string) (string, bool) {
	if email == "" {
		return "field required", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "value is not a valid email address", false
	}
	return "", true
}

func checkName(name string) (string, bool) {
	n := utf8.RuneCountInString(name)
	switch {
	case n < 1:
		return "ensure this value has at least 1 characters", false
	case n > MaxNameLength:
		return fmt.Sprintf("ensure this value has at most %d characters", MaxNameLength), false
	}
	return "", true
}

// Service implements the user operations on top of a Store
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new user service
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create validates and stores a new user
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u := &User{
		ID:        uuid.New(),
		Email:     in.Email,
		Name:      in.Name,
		IsActive:  true,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns a user by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.Get(ctx, id)
}

// Update applies the present fields of in to an existing user
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes a user by id
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}
