package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

type page struct {
	Name string
}

// recorder collects the statuses a Lifecycle publishes.
type recorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *recorder) record(s State[page]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s.Status)
}

func (r *recorder) get() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func TestInitialStateIsIdle(t *testing.T) {
	l := New("home", func(ctx context.Context, _ struct{}) (*page, error) {
		return &page{}, nil
	}, nil)

	s := l.State()
	assert.Equal(t, StatusIdle, s.Status)
	assert.Nil(t, s.Data)
	assert.Empty(t, s.Error)
}

func TestRunSuccess(t *testing.T) {
	var pendingSeen bool
	var l *Lifecycle[string, page]
	l = New("product", func(ctx context.Context, id string) (*page, error) {
		pendingSeen = l.State().Status == StatusPending
		return &page{Name: id}, nil
	}, nil)

	rec := &recorder{}
	l.Subscribe(rec.record)

	s := l.Run(context.Background(), "OLJCESPC7Z")

	assert.True(t, pendingSeen, "state is pending while the call runs")
	assert.Equal(t, StatusCompleted, s.Status)
	require.NotNil(t, s.Data)
	assert.Equal(t, "OLJCESPC7Z", s.Data.Name)
	assert.Empty(t, s.Error)
	assert.Equal(t, []Status{StatusPending, StatusCompleted}, rec.get())
}

func TestRunFailureDropsData(t *testing.T) {
	fail := false
	l := New("cart", func(ctx context.Context, _ struct{}) (*page, error) {
		if fail {
			return nil, model.NewAPIError(http.StatusInternalServerError, "Could not fetch cart.")
		}
		return &page{Name: "cart"}, nil
	}, nil)

	s := l.Run(context.Background(), struct{}{})
	require.NotNil(t, s.Data)

	fail = true
	s = l.Run(context.Background(), struct{}{})
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Nil(t, s.Data)
	assert.Equal(t, "Could not fetch cart.", s.Error)
	assert.True(t, s.Failed())
}

func TestRetriggerClearsError(t *testing.T) {
	calls := 0
	l := New("home", func(ctx context.Context, _ struct{}) (*page, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		return &page{Name: "home"}, nil
	}, nil)

	s := l.Run(context.Background(), struct{}{})
	assert.Equal(t, "boom", s.Error)

	s = l.Run(context.Background(), struct{}{})
	assert.Empty(t, s.Error)
	assert.False(t, s.Failed())
	assert.Equal(t, 2, calls, "no automatic retry")
}

func TestLastIssuedWins(t *testing.T) {
	release := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
	}
	var mu sync.Mutex
	ctxErrs := map[string]error{}

	l := New("product", func(ctx context.Context, id string) (*page, error) {
		<-release[id]
		mu.Lock()
		ctxErrs[id] = ctx.Err()
		mu.Unlock()
		return &page{Name: id}, nil
	}, nil)

	rec := &recorder{}
	l.Subscribe(rec.record)

	ctx := context.Background()
	l.Trigger(ctx, "A")
	l.Trigger(ctx, "B")

	// B completes first, then the stale A arrives.
	close(release["B"])
	require.Eventually(t, func() bool { return l.State().Status == StatusCompleted }, testTimeout, testTick)
	close(release["A"])
	l.Wait()

	s := l.State()
	require.NotNil(t, s.Data)
	assert.Equal(t, "B", s.Data.Name)
	assert.Equal(t, []Status{StatusPending, StatusCompleted}, rec.get(), "no pending to pending and no stale completion")

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, ctxErrs["A"], context.Canceled, "superseded request is cancelled")
	assert.NoError(t, ctxErrs["B"])
}

func TestStaleFailureDiscarded(t *testing.T) {
	releaseA := make(chan struct{})
	l := New("product", func(ctx context.Context, id string) (*page, error) {
		if id == "A" {
			<-releaseA
			return nil, fmt.Errorf("late failure")
		}
		return &page{Name: id}, nil
	}, nil)

	ctx := context.Background()
	l.Trigger(ctx, "A")
	s := l.Run(ctx, "B")
	require.NotNil(t, s.Data)

	close(releaseA)
	l.Wait()

	s = l.State()
	assert.Empty(t, s.Error)
	assert.Equal(t, "B", s.Data.Name)
}

func TestCloseDropsLateResults(t *testing.T) {
	release := make(chan struct{})
	calls := 0
	l := New("cart", func(ctx context.Context, _ struct{}) (*page, error) {
		calls++
		<-release
		return &page{Name: "late"}, nil
	}, nil)

	rec := &recorder{}
	l.Subscribe(rec.record)

	l.Trigger(context.Background(), struct{}{})
	l.Close()
	close(release)
	l.Wait()

	assert.Nil(t, l.State().Data)
	assert.Equal(t, []Status{StatusPending}, rec.get())

	l.Run(context.Background(), struct{}{})
	assert.Equal(t, 1, calls, "closed lifecycle ignores new requests")
}

func TestUnsubscribe(t *testing.T) {
	l := New("home", func(ctx context.Context, _ struct{}) (*page, error) {
		return &page{}, nil
	}, nil)

	rec := &recorder{}
	unsubscribe := l.Subscribe(rec.record)
	l.Run(context.Background(), struct{}{})
	unsubscribe()
	l.Run(context.Background(), struct{}{})

	assert.Len(t, rec.get(), 2)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"api error", model.NewAPIError(http.StatusNotFound, "Could not fetch product."), "Could not fetch product."},
		{"wrapped api error", fmt.Errorf("loading: %w", model.NewAPIError(http.StatusBadGateway, "Bad gateway")), "Bad gateway"},
		{"network", model.NewNetworkError("cart", errors.New("connection refused")), "could not reach the storefront"},
		{"cancelled", model.NewNetworkError("cart", context.Canceled), "request cancelled"},
		{"deadline", context.DeadlineExceeded, "request timed out"},
		{"validation", model.NewValidationError("zip_code", "must be 4 or 5 digits"), "invalid zip_code: must be 4 or 5 digits"},
		{"other", errors.New("parsing cart response: unexpected EOF"), "parsing cart response: unexpected EOF"},
		{"api error without message", model.NewAPIError(http.StatusInternalServerError, ""), "request failed"},
		{"empty error", errors.New(""), "request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func TestRunFailureWithoutMessage(t *testing.T) {
	l := New("cart", func(ctx context.Context, _ struct{}) (*page, error) {
		return nil, model.NewAPIError(http.StatusInternalServerError, "")
	}, nil)

	s := l.Run(context.Background(), struct{}{})

	assert.True(t, s.Failed())
	assert.Equal(t, "request failed", s.Error)
	assert.Nil(t, s.Data)
}
