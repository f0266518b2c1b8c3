package adapter

import (
	"context"
	"net/http"

	"storefront/internal/model"
)

// Mock implements Storefront for testing.
// Each method can be configured via function fields.
type Mock struct {
	HomeFunc        func(ctx context.Context) (*model.HomePage, error)
	ProductFunc     func(ctx context.Context, productID string) (*model.ProductPage, error)
	CartFunc        func(ctx context.Context) (*model.CartPayload, error)
	AddToCartFunc   func(ctx context.Context, req model.AddToCartRequest) error
	CheckoutFunc    func(ctx context.Context, form model.CheckoutForm) (*model.CheckoutResponse, error)
	MetadataFunc    func(ctx context.Context) (*model.Metadata, error)
	EmptyCartFunc   func(ctx context.Context) error
	SetCurrencyFunc func(ctx context.Context, currencyCode string) error
}

// Home calls the configured HomeFunc or returns an empty catalog.
func (m *Mock) Home(ctx context.Context) (*model.HomePage, error) {
	if m.HomeFunc != nil {
		return m.HomeFunc(ctx)
	}
	return &model.HomePage{Products: []model.Product{}}, nil
}

// Product calls the configured ProductFunc or returns a not-found error.
func (m *Mock) Product(ctx context.Context, productID string) (*model.ProductPage, error) {
	if m.ProductFunc != nil {
		return m.ProductFunc(ctx, productID)
	}
	return nil, model.NewAPIError(http.StatusNotFound, "Could not fetch product.")
}

// Cart calls the configured CartFunc or returns an empty cart.
func (m *Mock) Cart(ctx context.Context) (*model.CartPayload, error) {
	if m.CartFunc != nil {
		return m.CartFunc(ctx)
	}
	return &model.CartPayload{Items: []model.CartItem{}, Recommendations: []model.Recommendation{}}, nil
}

// AddToCart calls the configured AddToCartFunc or succeeds.
func (m *Mock) AddToCart(ctx context.Context, req model.AddToCartRequest) error {
	if m.AddToCartFunc != nil {
		return m.AddToCartFunc(ctx, req)
	}
	return nil
}

// Checkout calls the configured CheckoutFunc or returns an error.
func (m *Mock) Checkout(ctx context.Context, form model.CheckoutForm) (*model.CheckoutResponse, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, form)
	}
	return nil, model.NewAPIError(http.StatusInternalServerError, "Could not place order.")
}

// Metadata calls the configured MetadataFunc or returns the defaults.
func (m *Mock) Metadata(ctx context.Context) (*model.Metadata, error) {
	if m.MetadataFunc != nil {
		return m.MetadataFunc(ctx)
	}
	md := model.DefaultMetadata()
	return &md, nil
}

// EmptyCart calls the configured EmptyCartFunc or succeeds.
func (m *Mock) EmptyCart(ctx context.Context) error {
	if m.EmptyCartFunc != nil {
		return m.EmptyCartFunc(ctx)
	}
	return nil
}

// SetCurrency calls the configured SetCurrencyFunc or succeeds.
func (m *Mock) SetCurrency(ctx context.Context, currencyCode string) error {
	if m.SetCurrencyFunc != nil {
		return m.SetCurrencyFunc(ctx, currencyCode)
	}
	return nil
}

// Verify Mock implements Storefront interface at compile time.
var _ Storefront = (*Mock)(nil)
