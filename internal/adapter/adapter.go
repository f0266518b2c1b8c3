// Package adapter defines the storefront API contract consumed by pages.
// The HTTP implementation lives in internal/catalog.
package adapter

import (
	"context"

	"storefront/internal/model"
)

// Storefront abstracts the remote storefront API.
//
// Every call re-fetches: implementations must not cache. Non-success responses
// surface as *model.APIError and transport failures as *model.NetworkError,
// unmodified, so pages can tell them apart.
type Storefront interface {
	// Home returns the product list for the landing page.
	Home(ctx context.Context) (*model.HomePage, error)

	// Product returns a single product with its recommendations and ad.
	Product(ctx context.Context, productID string) (*model.ProductPage, error)

	// Cart returns the raw cart of the current session.
	Cart(ctx context.Context) (*model.CartPayload, error)

	// AddToCart adds a line item to the session's cart.
	AddToCart(ctx context.Context, req model.AddToCartRequest) error

	// Checkout places the order for the session's cart.
	Checkout(ctx context.Context, form model.CheckoutForm) (*model.CheckoutResponse, error)

	// Metadata returns header data: cart size, currencies, branding.
	Metadata(ctx context.Context) (*model.Metadata, error)

	// EmptyCart removes every line item from the session's cart.
	EmptyCart(ctx context.Context) error

	// SetCurrency changes the session's display currency.
	SetCurrency(ctx context.Context, currencyCode string) error
}
