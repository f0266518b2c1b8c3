// storefront is a CLI for browsing and buying from a storefront API.
// Each command renders one page, making it composable for scripts. The
// session token is kept in a file so consecutive commands share one cart.
//
// Commands:
//
//	storefront home
//	storefront product -id ID
//	storefront add -id ID [-qty N]
//	storefront cart
//	storefront checkout [-email E] [-street S] [-zip Z] ... [-year Y] [-cvv C]
//	storefront empty
//	storefront currency -code CODE
//	storefront metadata
//
// Examples:
//
//	storefront add -id OLJCESPC7Z -qty 2
//	storefront cart
//	ORDER=$(storefront checkout -email me@example.com -q)
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/lifecycle"
	"storefront/internal/metadata"
	"storefront/internal/page"
	"storefront/internal/session"
	"storefront/internal/transport"
)

// Global flags (apply to all commands)
var (
	apiURL      string
	sessionFile string
	quiet       bool
	noColor     bool
	verbose     bool
	asJSON      bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "home":
		runHome(args)
	case "product":
		runProduct(args)
	case "add":
		runAdd(args)
	case "cart":
		runCart(args)
	case "checkout":
		runCheckout(args)
	case "empty":
		runEmpty(args)
	case "currency":
		runCurrency(args)
	case "metadata":
		runMetadata(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `storefront - storefront shopping tool

Usage:
  storefront <command> [options]

Commands:
  home      List the catalog
  product   Show a product with recommendations
  add       Add a product to the cart
  cart      Show the cart and the checkout form defaults
  checkout  Place the order
  empty     Remove every item from the cart
  currency  Change the display currency
  metadata  Show cart size and currencies

Examples:
  # Browse and fill the cart
  storefront home
  storefront add -id OLJCESPC7Z -qty 2

  # Check out with the pre-populated form, overriding the e-mail
  storefront checkout -email me@example.com

Configuration is read from the environment (STOREFRONT_API_URL, SESSION_FILE, ...)
or CONFIG_FILE. Run 'storefront <command> -h' for command-specific options.
`)
}

// newFlagSet registers the global flags on a command's flag set.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&apiURL, "api", "", "Storefront API base URL (overrides STOREFRONT_API_URL)")
	fs.StringVar(&sessionFile, "session", "", "Session file (default: user config dir)")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the key value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - log storefront requests")
	fs.BoolVar(&asJSON, "json", false, "Print the page view as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: storefront %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// env is what every command needs once flags are parsed.
type env struct {
	ctx    context.Context
	client *catalog.Client
	logger *slog.Logger
}

// setup loads configuration, applies flag overrides and builds the client.
func setup() env {
	if noColor {
		disableColors()
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fatal("Loading config: %v", err)
	}
	if apiURL != "" {
		cfg.API.URL = apiURL
	}
	if sessionFile != "" {
		cfg.Session.File = sessionFile
	}
	if cfg.Session.File == "" {
		cfg.Session.File = defaultSessionFile()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	store, err := session.NewStore(cfg.Session.File)
	if err != nil {
		fatal("Opening session: %v", err)
	}
	rt, err := transport.New(cfg.API.Transport, cfg.API.RequestTimeout)
	if err != nil {
		fatal("Creating transport: %v", err)
	}

	client, err := catalog.New(catalog.Config{
		BaseURL:       cfg.API.URL,
		Session:       store,
		CookieName:    cfg.Session.CookieName,
		Transport:     rt,
		Timeout:       cfg.API.RequestTimeout,
		MinAPIVersion: cfg.API.MinAPIVersion,
		APIKey:        cfg.API.APIKey,
		Logger:        logger,
	})
	if err != nil {
		fatal("Creating client: %v", err)
	}

	// Pages fetch in parallel; the first contact must happen alone.
	if err := client.EnsureSession(ctx); err != nil {
		fatal("Contacting storefront: %v", err)
	}

	return env{ctx: ctx, client: client, logger: logger}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "storefront", "session.json")
}

// =============================================================================
// BROWSE COMMANDS
// =============================================================================

func runHome(args []string) {
	fs := newFlagSet("home", "home [options]")
	fs.Parse(args)
	e := setup()

	home := page.NewHome(e.client, e.logger)
	defer home.Unmount()

	s := home.Load(e.ctx)
	if s.Failed() {
		fatal("%s", s.Error)
	}
	if asJSON {
		printJSON(map[string]interface{}{"products": s.Data.Products, "header": home.Header()})
		return
	}

	printHeader(home.Header())
	for _, p := range s.Data.Products {
		if quiet {
			fmt.Println(p.ID)
			continue
		}
		fmt.Printf("  %s%-12s%s %-28s %s%s%s\n", colorGray, p.ID, colorReset, p.Name, colorGreen, p.Price, colorReset)
	}
}

func runProduct(args []string) {
	fs := newFlagSet("product", "product -id ID [options]")
	var productID string
	fs.StringVar(&productID, "id", "", "Product ID (required)")
	fs.Parse(args)

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}
	e := setup()

	p := page.NewProduct(e.client, productID, e.logger)
	defer p.Unmount()

	s := p.Load(e.ctx)
	if s.Failed() {
		fatal("%s", s.Error)
	}
	if asJSON {
		printJSON(map[string]interface{}{
			"product":          s.Data.Product,
			"recommendations":  s.Data.Recommendations,
			"ad":               s.Data.Ad,
			"quantity_options": page.QuantityOptions,
			"header":           p.Header(),
		})
		return
	}
	if quiet {
		fmt.Println(s.Data.Product.Price)
		return
	}

	printHeader(p.Header())
	fmt.Printf("%s%s%s  %s%s%s\n", colorBold, s.Data.Product.Name, colorReset, colorGreen, s.Data.Product.Price, colorReset)
	fmt.Printf("  %s\n", s.Data.Product.Description)
	if s.Data.Ad != nil {
		fmt.Printf("  %sAd:%s %s (%s)\n", colorYellow, colorReset, s.Data.Ad.Text, s.Data.Ad.RedirectURL)
	}
	if len(s.Data.Recommendations) > 0 {
		fmt.Printf("  %sYou may also like:%s\n", colorYellow, colorReset)
		for _, r := range s.Data.Recommendations {
			fmt.Printf("    - %s (%s)\n", r.Name, r.ID)
		}
	}
}

// =============================================================================
// CART COMMANDS
// =============================================================================

func runAdd(args []string) {
	fs := newFlagSet("add", "add -id ID [-qty N] [options]")
	var productID string
	var quantity int
	fs.StringVar(&productID, "id", "", "Product ID (required)")
	fs.IntVar(&quantity, "qty", 1, "Quantity (1, 2, 3, 4, 5 or 10)")
	fs.Parse(args)

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}
	e := setup()

	p := page.NewProduct(e.client, productID, e.logger)
	defer p.Unmount()

	next, err := p.AddToCart(e.ctx, quantity)
	if err != nil {
		fatal("Failed to add to cart: %s", displayError(err))
	}
	if quiet {
		fmt.Println(next)
		return
	}
	printSuccess("Added %d x %s", quantity, productID)
	printInfo("Next: %s", next)
}

func runCart(args []string) {
	fs := newFlagSet("cart", "cart [options]")
	fs.Parse(args)
	e := setup()

	c := page.NewCart(e.client, e.logger)
	defer c.Unmount()

	v := c.Load(e.ctx)
	if v.Error != "" {
		fatal("%s", v.Error)
	}
	if asJSON {
		printJSON(map[string]interface{}{"cart": v.Cart, "checkout": v.Checkout, "header": c.Header()})
		return
	}
	if quiet {
		fmt.Println(v.Cart.LineCount)
		return
	}

	printHeader(c.Header())
	if v.Cart.Empty {
		printInfo("Your shopping cart is empty. Browse with 'storefront home'.")
		return
	}

	fmt.Printf("%sCart (%d)%s\n", colorBold, v.Cart.LineCount, colorReset)
	for _, line := range v.Cart.Lines {
		fmt.Printf("  %-28s x%-3d %s%s%s\n", line.Product.Name, line.Quantity, colorGreen, line.Price, colorReset)
	}
	fmt.Printf("  %-33s %s\n", "Shipping", v.Cart.ShippingCost)
	fmt.Printf("  %s%-33s %s%s\n", colorBold, "Total", v.Cart.TotalCost, colorReset)

	if v.Cart.ShowRecommendations {
		fmt.Printf("  %sYou may also like:%s\n", colorYellow, colorReset)
		for _, r := range v.Cart.Recommendations {
			fmt.Printf("    - %s (%s)\n", r.Name, r.ID)
		}
	}

	years := make([]string, 0, len(v.Cart.ExpirationYears))
	for _, y := range v.Cart.ExpirationYears {
		years = append(years, y.Label)
	}
	printInfo("Checkout form defaults to %s; card years offered: %s",
		v.Checkout.Form.Email, strings.Join(years, ", "))
}

func runCheckout(args []string) {
	fs := newFlagSet("checkout", "checkout [form options]")
	var in checkout.Input
	fs.StringVar(&in.Email, "email", "", "E-mail address")
	fs.StringVar(&in.StreetAddress, "street", "", "Street address")
	fs.StringVar(&in.ZipCode, "zip", "", "Zip code")
	fs.StringVar(&in.City, "city", "", "City")
	fs.StringVar(&in.State, "state", "", "State")
	fs.StringVar(&in.Country, "country", "", "Country")
	fs.StringVar(&in.CreditCardNumber, "card", "", "Credit card number")
	fs.StringVar(&in.ExpMonth, "month", "", "Card expiration month")
	fs.StringVar(&in.ExpYear, "year", "", "Card expiration year")
	fs.StringVar(&in.CVV, "cvv", "", "Card CVV")
	fs.Parse(args)
	e := setup()

	c := page.NewCart(e.client, e.logger)
	defer c.Unmount()

	v := c.Load(e.ctx)
	if v.Error != "" {
		fatal("%s", v.Error)
	}

	order, err := c.Submit(e.ctx, v.Checkout.Form.With(in))
	if err != nil {
		fatal("Order failed: %s", displayError(err))
	}
	if asJSON {
		printJSON(order)
		return
	}
	if quiet {
		fmt.Println(order.OrderID)
		return
	}

	printSuccess("Your order is complete!")
	fmt.Printf("  Confirmation #: %s%s%s\n", colorCyan, order.OrderID, colorReset)
	fmt.Printf("  Tracking #:     %s\n", order.ShippingTrackingID)
	fmt.Printf("  Total paid:     %s%s%s\n", colorGreen, order.TotalPaid, colorReset)
}

func runEmpty(args []string) {
	fs := newFlagSet("empty", "empty [options]")
	fs.Parse(args)
	e := setup()

	c := page.NewCart(e.client, e.logger)
	defer c.Unmount()

	if err := c.Empty(e.ctx); err != nil {
		fatal("Failed to empty cart: %s", displayError(err))
	}
	printSuccess("Cart emptied")
}

// =============================================================================
// HEADER COMMANDS
// =============================================================================

func runCurrency(args []string) {
	fs := newFlagSet("currency", "currency -code CODE [options]")
	var code string
	fs.StringVar(&code, "code", "", "ISO currency code (required)")
	fs.Parse(args)

	if code == "" {
		fs.Usage()
		os.Exit(1)
	}
	e := setup()

	home := page.NewHome(e.client, e.logger)
	defer home.Unmount()

	if err := home.SetCurrency(e.ctx, strings.ToUpper(code)); err != nil {
		fatal("Failed to change currency: %s", displayError(err))
	}
	printSuccess("Currency set to %s", strings.ToUpper(code))
}

func runMetadata(args []string) {
	fs := newFlagSet("metadata", "metadata [options]")
	fs.Parse(args)
	e := setup()

	r := metadata.New(e.client, e.logger)
	defer r.Stop()
	r.Start(e.ctx)
	r.Wait()
	header := r.Header()

	if asJSON {
		printJSON(header)
		return
	}
	if quiet {
		fmt.Println(header.Metadata.CartSize)
		return
	}
	printHeader(header)
	fmt.Printf("  Currencies: %s\n", strings.Join(header.Metadata.Currencies, ", "))
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// printHeader renders the header line: currency and the cart badge.
func printHeader(h metadata.Header) {
	if quiet || asJSON {
		return
	}
	badge := ""
	if h.ShowCartSize {
		badge = fmt.Sprintf(" %s[cart: %d]%s", colorCyan, h.Metadata.CartSize, colorReset)
	}
	brand := "Online Boutique"
	if h.Metadata.IsAltBrand {
		brand = "Cymbal Shops"
	}
	fmt.Printf("%s%s%s  %s%s%s%s\n\n", colorBold, brand, colorReset, colorGray, h.Metadata.UserCurrency, colorReset, badge)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("Encoding output: %v", err)
	}
	fmt.Println(string(data))
}

// displayError returns the message a page would show for err.
func displayError(err error) string {
	return lifecycle.Message(err)
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
