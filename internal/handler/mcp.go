// MCP transport for the storefront using the official MCP Go SDK.
// Each tool mounts the matching page, waits for it to load and returns its view.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/lifecycle"
	"storefront/internal/metadata"
	"storefront/internal/model"
	"storefront/internal/page"
)

// === MCP Tool Input/Output Types ===

// NoInput is the input of tools that take no arguments.
type NoInput struct{}

// ProductInput selects a product.
type ProductInput struct {
	ProductID string `json:"product_id" jsonschema:"product ID (SKU)"`
}

// AddToCartInput is the input schema for the add_to_cart tool.
type AddToCartInput struct {
	ProductID string `json:"product_id" jsonschema:"product ID (SKU)"`
	Quantity  int    `json:"quantity" jsonschema:"quantity, one of 1 2 3 4 5 10"`
}

// PlaceOrderInput is the input schema for the place_order tool.
// Omitted fields keep the cart page's pre-populated values. The fields
// mirror checkout.Input so one converts to the other.
type PlaceOrderInput struct {
	Email            string `json:"email,omitempty" jsonschema:"buyer e-mail"`
	StreetAddress    string `json:"street_address,omitempty" jsonschema:"shipping street address"`
	ZipCode          string `json:"zip_code,omitempty" jsonschema:"4 or 5 digit zip code"`
	City             string `json:"city,omitempty" jsonschema:"shipping city"`
	State            string `json:"state,omitempty" jsonschema:"shipping state"`
	Country          string `json:"country,omitempty" jsonschema:"shipping country"`
	CreditCardNumber string `json:"credit_card_number,omitempty" jsonschema:"card number as 1234-5678-9012-3456"`
	ExpMonth         string `json:"credit_card_expiration_month,omitempty" jsonschema:"expiration month 1-12"`
	ExpYear          string `json:"credit_card_expiration_year,omitempty" jsonschema:"expiration year, one of the cart's offered years"`
	CVV              string `json:"credit_card_cvv,omitempty" jsonschema:"3 digit card security code"`
}

// SetCurrencyInput is the input schema for the set_currency tool.
type SetCurrencyInput struct {
	CurrencyCode string `json:"currency_code" jsonschema:"ISO currency code from get_metadata currencies"`
}

// HomeOutput is the home page view.
type HomeOutput struct {
	Products []model.Product `json:"products"`
	Header   metadata.Header `json:"header"`
}

// ProductOutput is the product page view.
type ProductOutput struct {
	Product         model.Product          `json:"product"`
	Recommendations []model.Recommendation `json:"recommendations"`
	Ad              *model.Ad              `json:"ad,omitempty"`
	QuantityOptions []int                  `json:"quantity_options"`
	Header          metadata.Header        `json:"header"`
}

// AddToCartOutput reports where the product page navigates next.
type AddToCartOutput struct {
	Next string `json:"next"`
}

// CartOutput is the cart page view.
type CartOutput struct {
	Cart     cart.View         `json:"cart"`
	Checkout checkout.Snapshot `json:"checkout"`
	Header   metadata.Header   `json:"header"`
}

// OrderOutput is the order confirmation.
type OrderOutput struct {
	Order model.Order `json:"order"`
}

// NewMCPServer creates an MCP server with the storefront tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront shopping tools. Browse with get_home_page and get_product, " +
				"fill the cart with add_to_cart, review it with get_cart and check out with place_order.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_home_page",
		Description: "List the catalog products shown on the home page.",
	}, h.mcpGetHomePage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Get a product with its recommendations and ad.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the cart line items, totals and the pre-populated checkout form.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a quantity of a product to the cart.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "place_order",
		Description: "Check out the cart. Omitted form fields use the cart page defaults.",
	}, h.mcpPlaceOrder)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "empty_cart",
		Description: "Remove every item from the cart.",
	}, h.mcpEmptyCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_currency",
		Description: "Change the display currency of the session.",
	}, h.mcpSetCurrency)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_metadata",
		Description: "Get the header data: cart size, currencies and branding.",
	}, h.mcpGetMetadata)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetHomePage(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input NoInput,
) (*mcp.CallToolResult, *HomeOutput, error) {
	home := page.NewHome(h.api, h.logger)
	defer home.Unmount()

	s := home.Load(ctx)
	if err := stateError(s.Error); err != nil {
		return nil, nil, err
	}

	out := &HomeOutput{Products: s.Data.Products, Header: home.Header()}
	if out.Products == nil {
		out.Products = []model.Product{}
	}
	return nil, out, nil
}

func (h *Handler) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, *ProductOutput, error) {
	if input.ProductID == "" {
		return nil, nil, fmt.Errorf("product_id is required")
	}

	p := page.NewProduct(h.api, input.ProductID, h.logger)
	defer p.Unmount()

	s := p.Load(ctx)
	if err := stateError(s.Error); err != nil {
		return nil, nil, err
	}

	out := &ProductOutput{
		Product:         s.Data.Product,
		Recommendations: s.Data.Recommendations,
		Ad:              s.Data.Ad,
		QuantityOptions: page.QuantityOptions,
		Header:          p.Header(),
	}
	if out.Recommendations == nil {
		out.Recommendations = []model.Recommendation{}
	}
	return nil, out, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input NoInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	c := page.NewCart(h.api, h.logger)
	defer c.Unmount()

	v := c.Load(ctx)
	if err := stateError(v.Error); err != nil {
		return nil, nil, err
	}
	return nil, &CartOutput{Cart: *v.Cart, Checkout: v.Checkout, Header: c.Header()}, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *AddToCartOutput, error) {
	if input.ProductID == "" {
		return nil, nil, fmt.Errorf("product_id is required")
	}

	p := page.NewProduct(h.api, input.ProductID, h.logger)
	defer p.Unmount()

	next, err := p.AddToCart(ctx, input.Quantity)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &AddToCartOutput{Next: next}, nil
}

func (h *Handler) mcpPlaceOrder(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input PlaceOrderInput,
) (*mcp.CallToolResult, *OrderOutput, error) {
	c := page.NewCart(h.api, h.logger)
	defer c.Unmount()

	v := c.Load(ctx)
	if err := stateError(v.Error); err != nil {
		return nil, nil, err
	}

	order, err := c.Submit(ctx, v.Checkout.Form.With(checkout.Input(input)))
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &OrderOutput{Order: *order}, nil
}

func (h *Handler) mcpEmptyCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input NoInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	c := page.NewCart(h.api, h.logger)
	defer c.Unmount()

	if err := c.Empty(ctx); err != nil {
		return nil, nil, h.mcpError(err)
	}

	v := c.View()
	if err := stateError(v.Error); err != nil {
		return nil, nil, err
	}
	return nil, &CartOutput{Cart: *v.Cart, Checkout: v.Checkout, Header: c.Header()}, nil
}

func (h *Handler) mcpSetCurrency(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SetCurrencyInput,
) (*mcp.CallToolResult, *metadata.Header, error) {
	if input.CurrencyCode == "" {
		return nil, nil, fmt.Errorf("currency_code is required")
	}
	if err := h.api.SetCurrency(ctx, input.CurrencyCode); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, h.loadHeader(ctx), nil
}

func (h *Handler) mcpGetMetadata(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input NoInput,
) (*mcp.CallToolResult, *metadata.Header, error) {
	return nil, h.loadHeader(ctx), nil
}

// loadHeader runs one metadata refresh. Failures leave the defaults.
func (h *Handler) loadHeader(ctx context.Context) *metadata.Header {
	r := metadata.New(h.api, h.logger)
	defer r.Stop()
	r.Start(ctx)
	r.Wait()
	header := r.Header()
	return &header
}

// stateError turns a page's displayable error into a tool error.
func stateError(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

// mcpError converts storefront errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	var valErr *model.ValidationError

	switch {
	case errors.As(err, &apiErr):
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	case errors.As(err, &valErr):
		return valErr
	case errors.Is(err, checkout.ErrOrderPlaced), errors.Is(err, checkout.ErrSubmissionInProgress):
		return err
	case errors.Is(err, model.ErrNetwork):
		return errors.New(lifecycle.Message(err))
	}

	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
