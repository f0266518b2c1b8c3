package page

import (
	"context"
	"log/slog"
	"sync"

	"storefront/internal/adapter"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

// QuantityOptions are the quantities offered on the product page.
var QuantityOptions = []int{1, 2, 3, 4, 5, 10}

// Product is the single product page.
//
// Changing the product id while a fetch is pending supersedes it: only the
// newest id's response ever reaches the page state.
type Product struct {
	frame
	life *lifecycle.Lifecycle[string, model.ProductPage]

	mu sync.Mutex
	id string
}

// NewProduct creates an unmounted product page for productID.
func NewProduct(api adapter.Storefront, productID string, logger *slog.Logger) *Product {
	f := newFrame(api, logger)
	return &Product{
		frame: f,
		life:  lifecycle.New("product", api.Product, f.logger),
		id:    productID,
	}
}

// ProductID returns the id the page currently shows.
func (p *Product) ProductID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Mount starts the product and metadata fetches.
func (p *Product) Mount(ctx context.Context) {
	p.meta.Start(ctx)
	p.Trigger(ctx)
}

// Trigger re-fetches the current product.
func (p *Product) Trigger(ctx context.Context) {
	p.life.Trigger(ctx, p.ProductID())
}

// SetProductID switches the page to another product and fetches it.
func (p *Product) SetProductID(ctx context.Context, productID string) {
	p.mu.Lock()
	p.id = productID
	p.mu.Unlock()

	p.life.Trigger(ctx, productID)
}

// Load mounts the page and waits for both fetches.
func (p *Product) Load(ctx context.Context) lifecycle.State[model.ProductPage] {
	p.Mount(ctx)
	p.life.Wait()
	p.meta.Wait()
	return p.State()
}

// State returns the product request state.
func (p *Product) State() lifecycle.State[model.ProductPage] {
	return p.life.State()
}

// Subscribe registers fn for product state changes.
func (p *Product) Subscribe(fn func(lifecycle.State[model.ProductPage])) func() {
	return p.life.Subscribe(fn)
}

// AddToCart adds quantity of the current product to the cart. The cart path is
// returned whether or not the request succeeded; the error is reported alongside.
func (p *Product) AddToCart(ctx context.Context, quantity int) (string, error) {
	if quantity < 1 {
		return CartPath, model.NewValidationError("quantity", "must be at least 1")
	}

	id := p.ProductID()
	err := p.api.AddToCart(ctx, model.AddToCartRequest{ProductID: id, Quantity: quantity})
	if err != nil {
		p.logger.Warn("add to cart failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
	return CartPath, err
}

// Unmount cancels outstanding fetches and drops their results.
func (p *Product) Unmount() {
	p.life.Close()
	p.meta.Stop()
}
