// Package discovery turns a documentation URL into the facts the check
// suites depend on: a base URL, resource paths, sample identifiers and an
// optional login token.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrExhausted is returned by FirstSuccess when every candidate was rejected
var ErrExhausted = errors.New("all candidates exhausted")

// Candidate is one lazily evaluated option. Try returns a Reject error to let
// the next candidate run; any other error stops the trial.
type Candidate[T any] struct {
	Name string
	Try  func(ctx context.Context) (T, error)
}

type rejection struct {
	reason string
}

func (r *rejection) Error() string {
	return r.reason
}

// Reject marks a candidate as not working
func Reject(format string, args ...interface{}) error {
	return &rejection{reason: fmt.Sprintf(format, args...)}
}

// ExhaustedError lists every rejected candidate with its reason
type ExhaustedError struct {
	Attempts []string
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrExhausted.Error() + ": no candidates"
	}
	return ErrExhausted.Error() + ":\n - " + strings.Join(e.Attempts, "\n - ")
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// FirstSuccess evaluates candidates in order and returns the first value that
// is not rejected.
func FirstSuccess[T any](ctx context.Context, candidates []Candidate[T]) (T, error) {
	var zero T
	exhausted := &ExhaustedError{}

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := cand.Try(ctx)
		if err == nil {
			return v, nil
		}

		var rej *rejection
		if !errors.As(err, &rej) {
			return zero, fmt.Errorf("%s: %w", cand.Name, err)
		}
		exhausted.Attempts = append(exhausted.Attempts, cand.Name+": "+rej.reason)
	}
	return zero, exhausted
}
