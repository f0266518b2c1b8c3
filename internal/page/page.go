// Package page composes the per-page request state the storefront front ends render:
// home, product and cart. Each page owns one primary request Lifecycle and one
// metadata Refresher for the header, both bound to the page mount.
package page

import (
	"context"
	"io"
	"log/slog"

	"storefront/internal/adapter"
	"storefront/internal/metadata"
)

// CartPath is where the product page navigates after adding to the cart.
const CartPath = "/cart"

// frame is the part shared by every page: the API and the header metadata.
type frame struct {
	api    adapter.Storefront
	meta   *metadata.Refresher
	logger *slog.Logger
}

func newFrame(api adapter.Storefront, logger *slog.Logger) frame {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return frame{
		api:    api,
		meta:   metadata.New(api, logger),
		logger: logger,
	}
}

// Header returns the header metadata; defaults until the refresh lands.
func (f frame) Header() metadata.Header {
	return f.meta.Header()
}

// SetCurrency changes the session's display currency. The new currency is
// visible to pages mounted afterwards.
func (f frame) SetCurrency(ctx context.Context, code string) error {
	return f.api.SetCurrency(ctx, code)
}
