package page

import (
	"context"
	"log/slog"

	"storefront/internal/adapter"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

// CartView is what the cart page renders. Once Order is set the confirmation
// replaces the cart body: Cart is nil for the rest of the mount.
type CartView struct {
	Status   lifecycle.Status  `json:"status"`
	Error    string            `json:"error,omitempty"`
	Cart     *cart.View        `json:"cart,omitempty"`
	Checkout checkout.Snapshot `json:"checkout"`
	Order    *model.Order      `json:"order,omitempty"`
}

// Cart is the cart and checkout page.
type Cart struct {
	frame
	life     *lifecycle.Lifecycle[struct{}, cart.View]
	checkout *checkout.Orchestrator
}

// NewCart creates an unmounted cart page.
func NewCart(api adapter.Storefront, logger *slog.Logger) *Cart {
	f := newFrame(api, logger)
	c := &Cart{
		frame:    f,
		checkout: checkout.New(api, f.logger),
	}
	c.life = lifecycle.New("cart", c.fetch, f.logger)
	// Only accepted responses reach subscribers, so a superseded fetch never
	// changes the years the checkout validates against.
	c.life.Subscribe(c.offerYears)
	return c
}

func (c *Cart) fetch(ctx context.Context, _ struct{}) (*cart.View, error) {
	payload, err := c.api.Cart(ctx)
	if err != nil {
		return nil, err
	}
	v := cart.Assemble(payload)
	return &v, nil
}

func (c *Cart) offerYears(s lifecycle.State[cart.View]) {
	if s.Status != lifecycle.StatusCompleted || s.Data == nil {
		return
	}
	c.checkout.SetExpirationYears(cart.Years(s.Data.ExpirationYears))
}

// Mount starts the cart and metadata fetches.
func (c *Cart) Mount(ctx context.Context) {
	c.meta.Start(ctx)
	c.Trigger(ctx)
}

// Trigger re-fetches the cart.
func (c *Cart) Trigger(ctx context.Context) {
	c.life.Trigger(ctx, struct{}{})
}

// Load mounts the page and waits for both fetches.
func (c *Cart) Load(ctx context.Context) CartView {
	c.Mount(ctx)
	c.life.Wait()
	c.meta.Wait()
	return c.View()
}

// State returns the cart request state.
func (c *Cart) State() lifecycle.State[cart.View] {
	return c.life.State()
}

// Subscribe registers fn for cart state changes.
func (c *Cart) Subscribe(fn func(lifecycle.State[cart.View])) func() {
	return c.life.Subscribe(fn)
}

// View returns the page as rendered: the cart with its checkout form, or the
// order confirmation once the order is placed.
func (c *Cart) View() CartView {
	s := c.life.State()
	snap := c.checkout.Snapshot()

	if snap.Order != nil {
		return CartView{Status: lifecycle.StatusCompleted, Checkout: snap, Order: snap.Order}
	}
	return CartView{Status: s.Status, Error: s.Error, Cart: s.Data, Checkout: snap}
}

// Submit places the order from raw form input.
func (c *Cart) Submit(ctx context.Context, in checkout.Input) (*model.Order, error) {
	return c.checkout.Submit(ctx, in)
}

// Empty removes every item from the cart and re-fetches it.
func (c *Cart) Empty(ctx context.Context) error {
	if c.checkout.Snapshot().Phase == checkout.PhaseCompleted {
		return checkout.ErrOrderPlaced
	}
	if err := c.api.EmptyCart(ctx); err != nil {
		return err
	}
	// No-op once mounted; an unmounted page still reports a fetched header.
	c.meta.Start(ctx)
	c.life.Run(ctx, struct{}{})
	c.meta.Wait()
	return nil
}

// Unmount cancels outstanding fetches and drops their results.
func (c *Cart) Unmount() {
	c.life.Close()
	c.meta.Stop()
}
