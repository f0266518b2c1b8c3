// Package metadata keeps the header data (cart size, currencies, branding) of one page mount.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"storefront/internal/model"
)

// Source fetches metadata.
type Source interface {
	Metadata(ctx context.Context) (*model.Metadata, error)
}

// Header is what the header region renders.
type Header struct {
	Metadata model.Metadata `json:"metadata"`
	// ShowCartSize is false for an empty cart, which hides the badge.
	ShowCartSize bool `json:"show_cart_size"`
}

// Refresher fetches metadata once per mount. Until that fetch succeeds, and
// forever if it fails, the defaults are in effect.
type Refresher struct {
	src    Source
	logger *slog.Logger

	mu      sync.Mutex
	md      model.Metadata
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Refresher holding the default metadata.
func New(src Source, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Refresher{
		src:    src,
		logger: logger,
		md:     model.DefaultMetadata(),
		done:   make(chan struct{}),
	}
}

// Current returns the metadata in effect.
func (r *Refresher) Current() model.Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	md := r.md
	md.Currencies = append([]string(nil), r.md.Currencies...)
	return md
}

// Header returns the current metadata shaped for the header region.
func (r *Refresher) Header() Header {
	md := r.Current()
	return Header{Metadata: md, ShowCartSize: md.CartSize > 0}
}

// Start fires the fetch in the background. Only the first call has an effect.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.stopped {
		return
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	go func() {
		defer close(r.done)
		r.refresh(ctx)
	}()
}

// Wait blocks until the fetch started by Start has finished.
// It returns immediately if Start was never called.
func (r *Refresher) Wait() {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()

	if started {
		<-r.done
	}
}

// Stop cancels an in-flight fetch; a result arriving later is dropped.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	md, err := r.src.Metadata(ctx)
	if err == nil && md == nil {
		err = errors.New("metadata response was empty")
	}
	if err == nil && !md.Valid() {
		err = fmt.Errorf("metadata violates invariants: cart_size=%d currencies=%v user_currency=%q",
			md.CartSize, md.Currencies, md.UserCurrency)
	}
	if err != nil {
		r.logger.Warn("metadata refresh failed, keeping current values", slog.String("error", err.Error()))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.md = *md
	r.logger.Debug("metadata refreshed",
		slog.Int("cart_size", md.CartSize),
		slog.String("user_currency", md.UserCurrency),
	)
}
