// Package catalog is the HTTP client for the storefront API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/adapter"
	"storefront/internal/agent"
	"storefront/internal/model"
	"storefront/internal/session"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// RequestIDHeader carries a per-request id for correlating client and server logs.
const RequestIDHeader = "X-Request-Id"

// operation describes one request contract of the storefront API.
type operation struct {
	name           string
	method         string
	defaultMessage string
}

var (
	opHome        = operation{"home", http.MethodGet, "Could not fetch home page."}
	opProduct     = operation{"product", http.MethodGet, "Could not fetch product."}
	opCart        = operation{"cart", http.MethodGet, "Could not fetch cart."}
	opAddToCart   = operation{"add_to_cart", http.MethodPost, "Could not add product to cart."}
	opCheckout    = operation{"checkout", http.MethodPost, "Could not place order."}
	opMetadata    = operation{"metadata", http.MethodGet, "Could not fetch metadata."}
	opEmptyCart   = operation{"empty_cart", http.MethodPost, "Could not empty cart."}
	opSetCurrency = operation{"set_currency", http.MethodPost, "Could not change currency."}
)

// Config holds catalog client configuration.
type Config struct {
	BaseURL    string
	Session    session.Provider
	CookieName string            // Default: session.DefaultCookieName
	Transport  http.RoundTripper // Default: http.DefaultTransport
	Timeout    time.Duration     // Default: 30s
	Agent      agent.Agent       // Default: agent.Default

	// MinAPIVersion, when set, is compared against the Storefront-API header.
	// A lower server version is logged, not rejected.
	MinAPIVersion string

	// APIKey, when set, is sent as a bearer token.
	APIKey string

	Logger *slog.Logger
}

// Client implements adapter.Storefront over HTTP.
//
// The session token is read from the Provider before every request and sent as
// a cookie; a Set-Cookie for the same name on any response replaces it.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	session       session.Provider
	cookieName    string
	agentHeader   string
	minAPIVersion string
	apiKey        string
	logger        *slog.Logger

	versionOnce sync.Once
}

// New creates a catalog client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("session provider is required")
	}

	if cfg.CookieName == "" {
		cfg.CookieName = session.DefaultCookieName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Agent.Client == "" {
		cfg.Agent = agent.Default
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	agentHeader, err := cfg.Agent.Format()
	if err != nil {
		return nil, fmt.Errorf("formatting agent header: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		session:       cfg.Session,
		cookieName:    cfg.CookieName,
		agentHeader:   agentHeader,
		minAPIVersion: cfg.MinAPIVersion,
		apiKey:        cfg.APIKey,
		logger:        cfg.Logger,
	}, nil
}

// Home fetches GET /.
func (c *Client) Home(ctx context.Context) (*model.HomePage, error) {
	var page model.HomePage
	if err := c.do(ctx, opHome, "/", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Product fetches GET /product/{id}.
func (c *Client) Product(ctx context.Context, productID string) (*model.ProductPage, error) {
	if productID == "" {
		return nil, model.NewValidationError("product_id", "is required")
	}

	var page model.ProductPage
	if err := c.do(ctx, opProduct, "/product/"+url.PathEscape(productID), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Cart fetches GET /cart.
func (c *Client) Cart(ctx context.Context) (*model.CartPayload, error) {
	var cart model.CartPayload
	if err := c.do(ctx, opCart, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart posts a line item to POST /cart/. The response body is ignored.
func (c *Client) AddToCart(ctx context.Context, req model.AddToCartRequest) error {
	return c.do(ctx, opAddToCart, "/cart/", req, nil)
}

// Checkout posts the form to POST /cart/checkout.
func (c *Client) Checkout(ctx context.Context, form model.CheckoutForm) (*model.CheckoutResponse, error) {
	var resp model.CheckoutResponse
	if err := c.do(ctx, opCheckout, "/cart/checkout", form, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Metadata fetches GET /metadata.
func (c *Client) Metadata(ctx context.Context) (*model.Metadata, error) {
	var md model.Metadata
	if err := c.do(ctx, opMetadata, "/metadata", nil, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// EmptyCart posts to POST /cart/empty.
func (c *Client) EmptyCart(ctx context.Context) error {
	return c.do(ctx, opEmptyCart, "/cart/empty", struct{}{}, nil)
}

// SetCurrency posts the currency code to POST /setCurrency.
func (c *Client) SetCurrency(ctx context.Context, currencyCode string) error {
	if currencyCode == "" {
		return model.NewValidationError("currency_code", "is required")
	}
	return c.do(ctx, opSetCurrency, "/setCurrency", model.SetCurrencyRequest{CurrencyCode: currencyCode}, nil)
}

// EnsureSession obtains a session token before concurrent use.
// Pages fetch their payload and metadata in parallel; without a token each
// request would be assigned a different session, and so a different cart.
func (c *Client) EnsureSession(ctx context.Context) error {
	if c.session.Token() != "" {
		return nil
	}
	return c.do(ctx, opMetadata, "/metadata", nil, nil)
}

// do executes one request contract and decodes the JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, op operation, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", op.name, err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, op.method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", op.name, err)
	}

	requestID := uuid.NewString()
	c.setHeaders(req, requestID, body != nil)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("storefront request failed",
			slog.String("op", op.name),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return model.NewNetworkError(op.name, err)
	}
	defer resp.Body.Close()

	c.captureSession(resp)
	c.checkAPIVersion(resp)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return model.NewNetworkError(op.name, fmt.Errorf("reading response: %w", err))
	}

	c.logger.Debug("storefront request",
		slog.String("op", op.name),
		slog.String("method", op.method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
		slog.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(op, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", op.name, err)
	}
	return nil
}

// setHeaders sets the headers common to every storefront request.
func (c *Client) setHeaders(req *http.Request, requestID string, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set(agent.AgentHeader, c.agentHeader)

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if token := c.session.Token(); token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: token})
	}
}

// userAgent identifies this client to upstream servers.
const userAgent = "storefront-go/1.0"

// captureSession stores a session token issued by the server.
func (c *Client) captureSession(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != c.cookieName || ck.Value == "" {
			continue
		}
		if err := c.session.Update(ck.Value); err != nil {
			c.logger.Warn("failed to persist session token", slog.String("error", err.Error()))
		}
		return
	}
}

// checkAPIVersion logs once when the server advertises an API older than configured.
func (c *Client) checkAPIVersion(resp *http.Response) {
	if c.minAPIVersion == "" {
		return
	}
	header := resp.Header.Get(agent.APIHeader)
	if header == "" {
		return
	}

	version, err := agent.ParseAPIHeader(header)
	if err != nil {
		c.logger.Debug("ignoring malformed API header", slog.String("error", err.Error()))
		return
	}
	if agent.Compatible(version, c.minAPIVersion) {
		return
	}
	c.versionOnce.Do(func() {
		c.logger.Warn("storefront API older than supported",
			slog.String("server_version", version),
			slog.String("min_version", c.minAPIVersion),
		)
	})
}

// errorBody is the optional JSON error body of a failed response.
type errorBody struct {
	Message string `json:"message"`
}

// parseErrorResponse converts a non-success response into an APIError.
// The body's message wins over the operation default when present.
func parseErrorResponse(op operation, statusCode int, body []byte) error {
	var eb errorBody
	json.Unmarshal(body, &eb) // Best effort parse

	msg := strings.TrimSpace(eb.Message)
	if msg == "" {
		msg = op.defaultMessage
	}
	return model.NewAPIError(statusCode, msg)
}

// Verify Client implements adapter.Storefront at compile time.
var _ adapter.Storefront = (*Client)(nil)
