package transport

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	ErrCanceled = errors.New("call canceled")
	ErrShutdown = errors.New("transport shut down")
)

// Func receives the outcome of a call. It owns resp.Body when err is nil.
type Func func(resp *http.Response, err error)

// State reports where a call is in its lifecycle.
type State int32

const (
	StateQueued State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	default:
		return "done"
	}
}

// Handle represents an in-flight or completed call.
type Handle struct {
	id     uuid.UUID
	tag    string
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32
}

// ID returns the identifier assigned to the call on submission.
func (h *Handle) ID() uuid.UUID { return h.id }

// Tag returns the tag the call was submitted with.
func (h *Handle) Tag() string { return h.tag }

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Done returns a channel that is closed once the completion func returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel cancels the call. It is safe to call repeatedly and after completion.
func (h *Handle) Cancel() { h.cancel() }

type ctxKey int

const callIDKey ctxKey = iota + 1

// CallID returns the identifier of the call a request context belongs to.
func CallID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(callIDKey).(uuid.UUID)
	return id, ok
}

func withCallID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, callIDKey, id)
}
