package page

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/adapter"
	"storefront/internal/cart"
	"storefront/internal/catalog/catalogtest"
	"storefront/internal/checkout"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

func TestHomeLoad(t *testing.T) {
	srv := catalogtest.NewServer()
	defer srv.Close()

	home := NewHome(srv.NewClient(), nil)
	defer home.Unmount()

	s := home.Load(context.Background())

	assert.Equal(t, lifecycle.StatusCompleted, s.Status)
	require.NotNil(t, s.Data)
	assert.Len(t, s.Data.Products, len(catalogtest.Products))
	assert.Equal(t, []string{"USD", "EUR", "JPY"}, home.Header().Metadata.Currencies)
}

func TestHomeFailureKeepsHeaderDefaults(t *testing.T) {
	srv := catalogtest.NewServer()
	defer srv.Close()
	srv.Fail("/", http.StatusInternalServerError, "")
	srv.Fail("/metadata", http.StatusInternalServerError, "")

	home := NewHome(srv.NewClient(), nil)
	s := home.Load(context.Background())

	assert.Equal(t, lifecycle.StatusCompleted, s.Status)
	assert.Nil(t, s.Data)
	assert.Equal(t, "Could not fetch home page.", s.Error)
	assert.Equal(t, model.DefaultMetadata(), home.Header().Metadata)
}

func TestMetadataFailureDoesNotFailPage(t *testing.T) {
	srv := catalogtest.NewServer()
	defer srv.Close()
	srv.Fail("/metadata", http.StatusServiceUnavailable, "down")

	p := NewProduct(srv.NewClient(), "OLJCESPC7Z", nil)
	s := p.Load(context.Background())

	assert.Empty(t, s.Error)
	require.NotNil(t, s.Data)
	assert.Equal(t, "Sunglasses", s.Data.Product.Name)
	require.NotNil(t, s.Data.Ad)
	assert.Equal(t, "USD", p.Header().Metadata.UserCurrency)
}

func TestProductStaleResponseDiscarded(t *testing.T) {
	release := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
	}
	api := &adapter.Mock{
		ProductFunc: func(ctx context.Context, id string) (*model.ProductPage, error) {
			<-release[id]
			return &model.ProductPage{Product: model.Product{ID: id, Name: "Product " + id}}, nil
		},
	}

	p := NewProduct(api, "A", nil)
	ctx := context.Background()
	p.Mount(ctx)
	p.SetProductID(ctx, "B")

	// B resolves first; A's late response must not overwrite it.
	close(release["B"])
	require.Eventually(t, func() bool { return p.State().Status == lifecycle.StatusCompleted }, testTimeout, testTick)
	close(release["A"])
	p.life.Wait()

	s := p.State()
	require.NotNil(t, s.Data)
	assert.Equal(t, "B", s.Data.Product.ID)
	assert.Equal(t, "B", p.ProductID())
}

func TestProductAddToCartNavigatesEvenOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		qty     int
		wantErr bool
	}{
		{"success", nil, 2, false},
		{"api failure", model.NewAPIError(http.StatusInternalServerError, "Could not add product to cart."), 1, true},
		{"invalid quantity", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.AddToCartRequest
			api := &adapter.Mock{
				AddToCartFunc: func(ctx context.Context, req model.AddToCartRequest) error {
					got = req
					return tt.err
				},
			}
			p := NewProduct(api, "66VCHSJNUP", nil)

			path, err := p.AddToCart(context.Background(), tt.qty)

			assert.Equal(t, "/cart", path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.AddToCartRequest{ProductID: "66VCHSJNUP", Quantity: tt.qty}, got)
		})
	}
}

func TestCartCheckoutFlow(t *testing.T) {
	srv := catalogtest.NewServer()
	defer srv.Close()
	client := srv.NewClient()
	ctx := context.Background()

	p := NewProduct(client, "OLJCESPC7Z", nil)
	_, err := p.AddToCart(ctx, 2)
	require.NoError(t, err)

	c := NewCart(client, nil)
	v := c.Load(ctx)
	require.NotNil(t, v.Cart)
	assert.False(t, v.Cart.Empty)
	require.Len(t, v.Cart.Lines, 1)
	assert.Equal(t, 2, v.Cart.Lines[0].Quantity)
	assert.Equal(t, checkout.PhaseCollecting, v.Checkout.Phase)
	assert.Equal(t, "2025", v.Checkout.Form.ExpYear)
	assert.True(t, c.Header().ShowCartSize)

	order, err := c.Submit(ctx, v.Checkout.Form)
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.OrderID)
	assert.Equal(t, model.PriceTag("$35.99"), order.TotalPaid)

	v = c.View()
	assert.Nil(t, v.Cart, "confirmation replaces the cart body")
	assert.Equal(t, order, v.Order)

	_, err = c.Submit(ctx, v.Checkout.Form)
	assert.ErrorIs(t, err, checkout.ErrOrderPlaced)
	assert.ErrorIs(t, c.Empty(ctx), checkout.ErrOrderPlaced)
}

func TestCartCheckoutFailureReturnsToForm(t *testing.T) {
	srv := catalogtest.NewServer()
	defer srv.Close()
	ctx := context.Background()

	c := NewCart(srv.NewClient(), nil)
	v := c.Load(ctx)
	require.NotNil(t, v.Cart)
	assert.True(t, v.Cart.Empty)

	// The fake rejects checkout of an empty cart.
	_, err := c.Submit(ctx, v.Checkout.Form)
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))

	v = c.View()
	assert.Equal(t, checkout.PhaseCollecting, v.Checkout.Phase)
	assert.Equal(t, "Your cart is empty.", v.Checkout.Error)
	assert.Nil(t, v.Order)
	assert.NotNil(t, v.Cart)
}

func TestCartEmpty(t *testing.T) {
	srv := catalogtest.NewServer()
	defer srv.Close()
	client := srv.NewClient()
	ctx := context.Background()

	_, err := NewProduct(client, "L9ECAV7KIM", nil).AddToCart(ctx, 1)
	require.NoError(t, err)

	c := NewCart(client, nil)
	v := c.Load(ctx)
	require.False(t, v.Cart.Empty)

	require.NoError(t, c.Empty(ctx))
	v = c.View()
	assert.True(t, v.Cart.Empty)
	assert.Empty(t, v.Cart.ShippingCost)
}

func TestCartEmptyRefreshesHeader(t *testing.T) {
	srv := catalogtest.NewServer()
	defer srv.Close()
	client := srv.NewClient()
	ctx := context.Background()

	require.NoError(t, NewHome(client, nil).SetCurrency(ctx, "JPY"))
	_, err := NewProduct(client, "L9ECAV7KIM", nil).AddToCart(ctx, 1)
	require.NoError(t, err)

	c := NewCart(client, nil)
	defer c.Unmount()
	require.NoError(t, c.Empty(ctx))

	h := c.Header()
	assert.Equal(t, "JPY", h.Metadata.UserCurrency)
	assert.Zero(t, h.Metadata.CartSize)
	assert.False(t, h.ShowCartSize)
	assert.True(t, c.View().Cart.Empty)
}

func TestCartStaleFetchKeepsAcceptedYears(t *testing.T) {
	var calls atomic.Int32
	releaseFirst := make(chan struct{})
	api := &adapter.Mock{
		CartFunc: func(ctx context.Context) (*model.CartPayload, error) {
			if calls.Add(1) == 1 {
				<-releaseFirst
				return &model.CartPayload{ExpirationYears: []int{2030}}, nil
			}
			return &model.CartPayload{ExpirationYears: []int{2040}}, nil
		},
		CheckoutFunc: func(ctx context.Context, form model.CheckoutForm) (*model.CheckoutResponse, error) {
			var resp model.CheckoutResponse
			resp.Order.OrderID = "order-2040"
			return &resp, nil
		},
	}
	c := NewCart(api, nil)
	defer c.Unmount()
	ctx := context.Background()

	c.Mount(ctx)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, testTimeout, testTick)

	// The refetch completes first; the mount fetch answers late and is stale.
	c.life.Run(ctx, struct{}{})
	close(releaseFirst)
	c.life.Wait()

	v := c.View()
	require.NotNil(t, v.Cart)
	assert.Equal(t, []cart.YearOption{{Value: 2040, Label: "2040"}}, v.Cart.ExpirationYears)
	assert.Equal(t, "2040", v.Checkout.Form.ExpYear)

	in := v.Checkout.Form
	in.ExpYear = "2030"
	_, err := c.Submit(ctx, in)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "credit_card_expiration_year", verr.Field)

	in.ExpYear = "2040"
	order, err := c.Submit(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "order-2040", order.OrderID)
}

func TestUnmountDropsResults(t *testing.T) {
	release := make(chan struct{})
	api := &adapter.Mock{
		CartFunc: func(ctx context.Context) (*model.CartPayload, error) {
			<-release
			return &model.CartPayload{Items: []model.CartItem{{Quantity: 1}}}, nil
		},
	}
	c := NewCart(api, nil)
	c.Mount(context.Background())
	c.Unmount()
	close(release)
	c.life.Wait()

	assert.Nil(t, c.State().Data)
}

func TestSetCurrency(t *testing.T) {
	srv := catalogtest.NewServer()
	defer srv.Close()
	client := srv.NewClient()
	ctx := context.Background()

	require.NoError(t, NewHome(client, nil).SetCurrency(ctx, "EUR"))

	home := NewHome(client, nil)
	home.Load(ctx)
	assert.Equal(t, "EUR", home.Header().Metadata.UserCurrency)
}
