// Package provider defines the contract every generative-text backend adapter
// implements, and the helpers adapters share: attempt results, response-shape
// extraction, and the priority-ordered registry the dispatcher draws from.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable marks an adapter that cannot be called (missing credentials or not built).
	ErrUnavailable = errors.New("provider unavailable")

	// ErrEmptyReply means the backend answered but the extracted text was empty.
	ErrEmptyReply = errors.New("empty reply")

	// ErrNoMatchingShape means no declared response strategy matched the body.
	ErrNoMatchingShape = errors.New("no matching response shape")
)

// Provider is one generative-text backend. Attempt performs exactly one
// request/response exchange and never panics or returns a Go error: every
// failure is folded into the Result.
type Provider interface {
	Name() string
	Attempt(ctx context.Context, message string) Result
}

// Result is the outcome of a single Attempt.
type Result struct {
	Text string
	Err  error
}

// Success wraps reply text.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure wraps the reason an attempt failed.
func Failure(err error) Result {
	if err == nil {
		err = ErrEmptyReply
	}
	return Result{Err: err}
}

// OK reports whether the attempt produced usable text.
func (r Result) OK() bool {
	return r.Err == nil && strings.TrimSpace(r.Text) != ""
}

// Reason returns a loggable failure description.
func (r Result) Reason() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case strings.TrimSpace(r.Text) == "":
		return ErrEmptyReply.Error()
	default:
		return ""
	}
}

// unavailable is the stand-in for an adapter that could not be built.
type unavailable struct {
	name   string
	reason string
}

// Unavailable returns a Provider that fails immediately without network I/O.
func Unavailable(name, reason string) Provider {
	return unavailable{name: name, reason: reason}
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Attempt(_ context.Context, _ string) Result {
	return Failure(fmt.Errorf("%s: %w: %s", u.name, ErrUnavailable, u.reason))
}
