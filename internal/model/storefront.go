// Package model defines the storefront API payloads, the view records built from them,
// and the error taxonomy shared by the client packages.
package model

// === Session & Metadata ===

// Session is the server-assigned identity that scopes the cart.
// The client stores and forwards it but never invents or edits it.
type Session struct {
	SessionID string `json:"session_id"`
}

// Metadata feeds the header region: cart badge, currency picker and branding.
type Metadata struct {
	CartSize     int      `json:"cart_size"`
	Currencies   []string `json:"currencies"`
	UserCurrency string   `json:"user_currency"`
	IsAltBrand   bool     `json:"is_cymbal_brand"`
}

// DefaultMetadata is in effect until the first successful metadata fetch.
func DefaultMetadata() Metadata {
	return Metadata{
		CartSize:     0,
		Currencies:   []string{"USD", "EUR"},
		UserCurrency: "USD",
		IsAltBrand:   false,
	}
}

// Valid reports whether m satisfies the metadata invariants:
// non-negative cart size, non-empty currency list, user currency listed.
func (m Metadata) Valid() bool {
	if m.CartSize < 0 || len(m.Currencies) == 0 {
		return false
	}
	for _, c := range m.Currencies {
		if c == m.UserCurrency {
			return true
		}
	}
	return false
}

// === Catalog ===

// PriceTag is a pre-formatted currency string (e.g. "$15.99").
// It is displayed as-is and never parsed.
type PriceTag string

// Product is a catalog entry as returned by the API.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PictureURL  string   `json:"picture"`
	Price       PriceTag `json:"price,omitempty"`
}

// Recommendation is the reduced product projection used for cross-sell rows.
type Recommendation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PictureURL  string `json:"picture"`
	Description string `json:"description,omitempty"`
}

// Ad is the sponsored link rendered under a product.
type Ad struct {
	RedirectURL string `json:"redirect_url"`
	Text        string `json:"text"`
}

// === Page payloads ===

// HomePage is the payload of GET /.
// Header fields ride along with the products; pages still refresh Metadata separately.
type HomePage struct {
	Products        []Product        `json:"products"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`

	SessionID    string   `json:"session_id,omitempty"`
	RequestID    string   `json:"request_id,omitempty"`
	UserCurrency string   `json:"user_currency,omitempty"`
	ShowCurrency bool     `json:"show_currency,omitempty"`
	Currencies   []string `json:"currencies,omitempty"`
	CartSize     int      `json:"cart_size,omitempty"`
	BannerColor  string   `json:"banner_color,omitempty"`
	PlatformName string   `json:"platform_name,omitempty"`
	IsAltBrand   bool     `json:"is_cymbal_brand,omitempty"`
}

// ProductPage is the payload of GET /product/{id}.
type ProductPage struct {
	Product         Product          `json:"product"`
	Recommendations []Recommendation `json:"recommendations"`
	Ad              *Ad              `json:"ad,omitempty"`
}

// CartItem is one raw line of the cart payload.
type CartItem struct {
	Product  Product  `json:"product"`
	Price    PriceTag `json:"price"`
	Quantity int      `json:"quantity"`
}

// CartPayload is the payload of GET /cart.
type CartPayload struct {
	Items           []CartItem       `json:"items"`
	Recommendations []Recommendation `json:"recommendations"`
	ShippingCost    PriceTag         `json:"shipping_cost"`
	TotalCost       PriceTag         `json:"total_cost"`
	ExpirationYears []int            `json:"expiration_years"`
}

// CartLine is the renderable record produced for each cart item.
type CartLine struct {
	Product  Product  `json:"product"`
	Price    PriceTag `json:"price"`
	Quantity int      `json:"quantity"`
}

// === Requests ===

// AddToCartRequest is the body of POST /cart/.
type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutForm is the body of POST /cart/checkout.
// Numeric fields are already parsed and validated by the checkout package.
type CheckoutForm struct {
	Email            string `json:"email"`
	StreetAddress    string `json:"street_address"`
	ZipCode          int    `json:"zip_code"`
	City             string `json:"city"`
	State            string `json:"state"`
	Country          string `json:"country"`
	CreditCardNumber string `json:"credit_card_number"`
	ExpMonth         int    `json:"credit_card_expiration_month"`
	ExpYear          int    `json:"credit_card_expiration_year"`
	CVV              int    `json:"credit_card_cvv"`
}

// SetCurrencyRequest is the body of POST /setCurrency.
type SetCurrencyRequest struct {
	CurrencyCode string `json:"currency_code"`
}

// === Checkout result ===

// CheckoutResponse is the payload returned by a successful checkout.
type CheckoutResponse struct {
	Order struct {
		OrderID            string `json:"order_id"`
		ShippingTrackingID string `json:"shipping_tracking_id"`
	} `json:"order"`
	TotalPaid PriceTag `json:"total_paid"`
}

// Order is the confirmation record of a placed order.
type Order struct {
	OrderID            string   `json:"order_id"`
	ShippingTrackingID string   `json:"shipping_tracking_id"`
	TotalPaid          PriceTag `json:"total_paid"`
}

// ToOrder flattens the checkout response into the confirmation record.
func (r *CheckoutResponse) ToOrder() *Order {
	return &Order{
		OrderID:            r.Order.OrderID,
		ShippingTrackingID: r.Order.ShippingTrackingID,
		TotalPaid:          r.TotalPaid,
	}
}
