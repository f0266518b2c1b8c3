// Package catalogtest provides an in-process fake of the storefront API.
package catalogtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"storefront/internal/agent"
	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/session"
)

// Products seeded into every new Server, in listing order.
var Products = []model.Product{
	{ID: "OLJCESPC7Z", Name: "Sunglasses", Description: "Add a modern touch to your outfits.", PictureURL: "/static/img/products/sunglasses.jpg", Price: "$19.99"},
	{ID: "66VCHSJNUP", Name: "Tank Top", Description: "Perfectly cropped cotton tank.", PictureURL: "/static/img/products/tank-top.jpg", Price: "$18.99"},
	{ID: "1YMWWN1N4O", Name: "Watch", Description: "This gold-tone stainless steel watch.", PictureURL: "/static/img/products/watch.jpg", Price: "$109.99"},
	{ID: "L9ECAV7KIM", Name: "Loafers", Description: "A neat addition to your summer wardrobe.", PictureURL: "/static/img/products/loafers.jpg", Price: "$89.99"},
}

// Request is what the server recorded about one incoming request.
type Request struct {
	Method    string
	Path      string
	SessionID string
	RequestID string
	Agent     string
	Body      []byte
}

type failure struct {
	status  int
	message string
}

// Server is a fake storefront API backed by httptest.
//
// Carts are scoped by the session cookie; a request without one is assigned
// a fresh session through Set-Cookie, as the real API does.
type Server struct {
	*httptest.Server

	// Static responses; tests may change them before issuing requests.
	ShippingCost    model.PriceTag
	TotalCost       model.PriceTag
	ExpirationYears []int
	Currencies      []string
	APIVersion      string

	mu          sync.Mutex
	carts       map[string][]model.CartItem
	currency    map[string]string
	failures    map[string]failure
	requests    []Request
	nextSession int
	nextOrder   int
}

// NewServer starts a fake storefront. Close it when done.
func NewServer() *Server {
	s := &Server{
		ShippingCost:    "$8.99",
		TotalCost:       "$35.99",
		ExpirationYears: []int{2025, 2026, 2027, 2028, 2029},
		Currencies:      []string{"USD", "EUR", "JPY"},
		carts:           make(map[string][]model.CartItem),
		currency:        make(map[string]string),
		failures:        make(map[string]failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /product/{id}", s.handleProduct)
	mux.HandleFunc("GET /cart", s.handleCart)
	mux.HandleFunc("POST /cart/{$}", s.handleAddToCart)
	mux.HandleFunc("POST /cart/checkout", s.handleCheckout)
	mux.HandleFunc("POST /cart/empty", s.handleEmptyCart)
	mux.HandleFunc("POST /setCurrency", s.handleSetCurrency)
	mux.HandleFunc("GET /metadata", s.handleMetadata)

	s.Server = httptest.NewServer(s.middleware(mux))
	return s
}

// Fail makes every request to path answer status with message.
// An empty message sends an empty JSON object, leaving the client its default.
func (s *Server) Fail(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, message: message}
}

// Recover removes a failure installed with Fail.
func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, path)
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CartOf returns the cart items of sessionID.
func (s *Server) CartOf(sessionID string) []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CartItem(nil), s.carts[sessionID]...)
}

// NewClient returns a catalog client pointed at s with an in-memory session.
func (s *Server) NewClient() *catalog.Client {
	c, err := catalog.New(catalog.Config{
		BaseURL: s.URL,
		Session: session.NewMemoryStore(""),
	})
	if err != nil {
		panic(fmt.Sprintf("catalogtest: %v", err))
	}
	return c
}

type ctxKey struct{}

// call is the per-request state the middleware hands to handlers.
type call struct {
	sessionID string
	body      []byte
}

func callFrom(r *http.Request) call {
	c, _ := r.Context().Value(ctxKey{}).(call)
	return c
}

// middleware records the request, assigns a session and applies installed failures.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			dec := json.NewDecoder(r.Body)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err == nil {
				body = raw
			}
		}

		sessionID := ""
		if ck, err := r.Cookie(session.DefaultCookieName); err == nil {
			sessionID = ck.Value
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			SessionID: sessionID,
			RequestID: r.Header.Get(catalog.RequestIDHeader),
			Agent:     r.Header.Get(agent.AgentHeader),
			Body:      body,
		})
		if sessionID == "" {
			s.nextSession++
			sessionID = fmt.Sprintf("session-%d", s.nextSession)
			http.SetCookie(w, &http.Cookie{Name: session.DefaultCookieName, Value: sessionID, Path: "/"})
		}
		f, failed := s.failures[r.URL.Path]
		s.mu.Unlock()

		if s.APIVersion != "" {
			if h, err := agent.FormatAPIHeader(s.APIVersion); err == nil {
				w.Header().Set(agent.APIHeader, h)
			}
		}

		if failed {
			if f.message == "" {
				writeJSON(w, f.status, map[string]string{})
			} else {
				writeJSON(w, f.status, map[string]string{"message": f.message})
			}
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, call{sessionID: sessionID, body: body})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HomePage{
		Products:  Products,
		SessionID: callFrom(r).sessionID,
	})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, p := range Products {
		if p.ID != id {
			continue
		}
		writeJSON(w, http.StatusOK, model.ProductPage{
			Product:         p,
			Recommendations: recommendations(id),
			Ad:              &model.Ad{RedirectURL: "/product/" + id, Text: "Limited offer on " + p.Name},
		})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found."})
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	sessionID := callFrom(r).sessionID

	s.mu.Lock()
	items := append([]model.CartItem{}, s.carts[sessionID]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, model.CartPayload{
		Items:           items,
		Recommendations: recommendations(""),
		ShippingCost:    s.ShippingCost,
		TotalCost:       s.TotalCost,
		ExpirationYears: s.ExpirationYears,
	})
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req model.AddToCartRequest
	if err := json.Unmarshal(callFrom(r).body, &req); err != nil || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid cart item."})
		return
	}

	var product *model.Product
	for i := range Products {
		if Products[i].ID == req.ProductID {
			product = &Products[i]
		}
	}
	if product == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found."})
		return
	}

	sessionID := callFrom(r).sessionID
	s.mu.Lock()
	s.carts[sessionID] = append(s.carts[sessionID], model.CartItem{
		Product:  *product,
		Price:    product.Price,
		Quantity: req.Quantity,
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var form model.CheckoutForm
	if err := json.Unmarshal(callFrom(r).body, &form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid checkout form."})
		return
	}

	sessionID := callFrom(r).sessionID
	s.mu.Lock()
	if len(s.carts[sessionID]) == 0 {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Your cart is empty."})
		return
	}
	delete(s.carts, sessionID)
	s.nextOrder++
	n := s.nextOrder
	s.mu.Unlock()

	var resp model.CheckoutResponse
	resp.Order.OrderID = fmt.Sprintf("order-%d", n)
	resp.Order.ShippingTrackingID = fmt.Sprintf("track-%d", n)
	resp.TotalPaid = s.TotalCost
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEmptyCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.carts, callFrom(r).sessionID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var req model.SetCurrencyRequest
	json.Unmarshal(callFrom(r).body, &req)

	supported := false
	for _, c := range s.Currencies {
		if c == req.CurrencyCode {
			supported = true
		}
	}
	if !supported {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Unsupported currency."})
		return
	}

	s.mu.Lock()
	s.currency[callFrom(r).sessionID] = req.CurrencyCode
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	sessionID := callFrom(r).sessionID

	s.mu.Lock()
	size := 0
	for _, item := range s.carts[sessionID] {
		size += item.Quantity
	}
	currency := s.currency[sessionID]
	s.mu.Unlock()

	if currency == "" {
		currency = "USD"
	}
	writeJSON(w, http.StatusOK, model.Metadata{
		CartSize:     size,
		Currencies:   s.Currencies,
		UserCurrency: currency,
	})
}

func recommendations(exclude string) []model.Recommendation {
	var recs []model.Recommendation
	for _, p := range Products {
		if p.ID == exclude {
			continue
		}
		recs = append(recs, model.Recommendation{ID: p.ID, Name: p.Name, PictureURL: p.PictureURL})
	}
	return recs
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
