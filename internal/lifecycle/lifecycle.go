// Package lifecycle tracks the pending, completed and failed state of one
// asynchronous storefront call per page.
package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"storefront/internal/model"
)

// Status is the phase of a request.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// State is the observable snapshot of a Lifecycle.
//
// A completed state carries either Data or Error, never both.
type State[T any] struct {
	Status Status `json:"status"`
	Data   *T     `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the last request completed with an error.
func (s State[T]) Failed() bool {
	return s.Status == StatusCompleted && s.Error != ""
}

// Op is the call a Lifecycle wraps.
type Op[A, T any] func(ctx context.Context, arg A) (*T, error)

// Lifecycle wraps one Op and exposes its state.
//
// The last issued request wins: triggering while a request is pending cancels the
// older request's context and its result is discarded whenever it arrives.
type Lifecycle[A, T any] struct {
	name   string
	op     Op[A, T]
	logger *slog.Logger

	mu     sync.Mutex
	state  State[T]
	gen    uint64
	cancel context.CancelFunc
	closed bool
	subs   map[int]func(State[T])
	nextID int

	// notifyMu is taken before mu is released so subscribers see changes in order.
	notifyMu sync.Mutex

	wg sync.WaitGroup
}

// New creates an idle Lifecycle around op. name appears in log records.
func New[A, T any](name string, op func(ctx context.Context, arg A) (*T, error), logger *slog.Logger) *Lifecycle[A, T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Lifecycle[A, T]{
		name:   name,
		op:     op,
		logger: logger.With(slog.String("lifecycle", name)),
		state:  State[T]{Status: StatusIdle},
		subs:   make(map[int]func(State[T])),
	}
}

// State returns the current snapshot.
func (l *Lifecycle[A, T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Subscribe registers fn to receive every state change. fn runs on the goroutine
// that caused the change and must not trigger the Lifecycle. The returned func
// removes the subscription.
func (l *Lifecycle[A, T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.subs[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// Run issues a request and blocks until it finishes. It returns the state after
// completion, which belongs to a newer request if this one was superseded.
func (l *Lifecycle[A, T]) Run(ctx context.Context, arg A) State[T] {
	gen, rctx, ok := l.begin(ctx)
	if !ok {
		return l.State()
	}
	data, err := l.op(rctx, arg)
	return l.finish(gen, data, err)
}

// Trigger issues a request in the background. The request is ordered against
// other triggers at call time, not when its goroutine starts.
func (l *Lifecycle[A, T]) Trigger(ctx context.Context, arg A) {
	gen, rctx, ok := l.begin(ctx)
	if !ok {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		data, err := l.op(rctx, arg)
		l.finish(gen, data, err)
	}()
}

// Wait blocks until every triggered request has returned.
func (l *Lifecycle[A, T]) Wait() {
	l.wg.Wait()
}

// Close cancels the in-flight request. Results that arrive afterwards are
// dropped and further triggers are ignored.
func (l *Lifecycle[A, T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Lifecycle[A, T]) begin(parent context.Context) (uint64, context.Context, bool) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, nil, false
	}

	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel

	// Never pending to pending.
	if l.state.Status == StatusPending {
		l.logger.Debug("superseding pending request", slog.Uint64("generation", gen))
		l.mu.Unlock()
		return gen, ctx, true
	}

	l.state.Status = StatusPending
	l.state.Error = ""
	l.publishLocked()
	return gen, ctx, true
}

func (l *Lifecycle[A, T]) finish(gen uint64, data *T, err error) State[T] {
	l.mu.Lock()
	if l.closed || gen != l.gen {
		l.logger.Debug("discarding stale response", slog.Uint64("generation", gen))
		s := l.state
		l.mu.Unlock()
		return s
	}

	l.cancel()
	l.cancel = nil

	if err != nil {
		l.logger.Warn("request failed", slog.String("error", err.Error()))
		l.state = State[T]{Status: StatusCompleted, Error: Message(err)}
	} else {
		l.state = State[T]{Status: StatusCompleted, Data: data}
	}
	s := l.state
	l.publishLocked()
	return s
}

// publishLocked delivers the current state to subscribers. It must be called
// with mu held and releases it.
func (l *Lifecycle[A, T]) publishLocked() {
	s := l.state
	subs := make([]func(State[T]), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}

	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// fallbackMessage is used for errors that carry no text. Failed depends on a
// non-empty Error.
const fallbackMessage = "request failed"

// Message returns the displayable text for a failed request. It is empty only
// for a nil err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := message(err); msg != "" {
		return msg
	}
	return fallbackMessage
}

func message(err error) string {
	var apiErr *model.APIError
	var valErr *model.ValidationError

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &valErr):
		return valErr.Error()
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, model.ErrNetwork):
		return "could not reach the storefront"
	default:
		return err.Error()
	}
}
