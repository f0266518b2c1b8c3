package page

import (
	"context"
	"log/slog"

	"storefront/internal/adapter"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

// Home is the landing page.
type Home struct {
	frame
	life *lifecycle.Lifecycle[struct{}, model.HomePage]
}

// NewHome creates an unmounted home page.
func NewHome(api adapter.Storefront, logger *slog.Logger) *Home {
	f := newFrame(api, logger)
	op := func(ctx context.Context, _ struct{}) (*model.HomePage, error) {
		return api.Home(ctx)
	}
	return &Home{
		frame: f,
		life:  lifecycle.New("home", op, f.logger),
	}
}

// Mount starts the product listing and metadata fetches.
func (h *Home) Mount(ctx context.Context) {
	h.meta.Start(ctx)
	h.Trigger(ctx)
}

// Trigger re-fetches the listing.
func (h *Home) Trigger(ctx context.Context) {
	h.life.Trigger(ctx, struct{}{})
}

// Load mounts the page and waits for both fetches.
func (h *Home) Load(ctx context.Context) lifecycle.State[model.HomePage] {
	h.Mount(ctx)
	h.life.Wait()
	h.meta.Wait()
	return h.State()
}

// State returns the listing request state.
func (h *Home) State() lifecycle.State[model.HomePage] {
	return h.life.State()
}

// Subscribe registers fn for listing state changes.
func (h *Home) Subscribe(fn func(lifecycle.State[model.HomePage])) func() {
	return h.life.Subscribe(fn)
}

// Unmount cancels outstanding fetches and drops their results.
func (h *Home) Unmount() {
	h.life.Close()
	h.meta.Stop()
}
