// Package cart turns the raw cart payload into the records the cart page renders.
package cart

import (
	"strconv"

	"storefront/internal/model"
)

// YearOption is one selectable card expiration year.
type YearOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// View is the renderable cart.
//
// LineCount is the number of lines, not the sum of their quantities; it is
// what the cart heading shows.
//
// When Empty is set the page shows its call to action instead of the line items,
// so Lines is nil and the shipping and total rows are blank.
type View struct {
	Empty               bool                   `json:"empty"`
	Lines               []model.CartLine       `json:"lines,omitempty"`
	LineCount           int                    `json:"line_count"`
	Recommendations     []model.Recommendation `json:"recommendations,omitempty"`
	ShowRecommendations bool                   `json:"show_recommendations"`
	ShippingCost        model.PriceTag         `json:"shipping_cost,omitempty"`
	TotalCost           model.PriceTag         `json:"total_cost,omitempty"`
	ExpirationYears     []YearOption           `json:"expiration_years,omitempty"`
}

// Assemble builds the cart view. Line order follows the payload exactly and
// prices are passed through untouched.
func Assemble(payload *model.CartPayload) View {
	if payload == nil {
		return View{Empty: true}
	}

	v := View{
		Recommendations:     payload.Recommendations,
		ShowRecommendations: len(payload.Recommendations) > 0,
		ExpirationYears:     YearOptions(payload.ExpirationYears),
	}

	if len(payload.Items) == 0 {
		v.Empty = true
		return v
	}

	v.Lines = make([]model.CartLine, len(payload.Items))
	for i, item := range payload.Items {
		v.Lines[i] = model.CartLine{
			Product:  item.Product,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
	}
	v.LineCount = len(v.Lines)
	v.ShippingCost = payload.ShippingCost
	v.TotalCost = payload.TotalCost
	return v
}

// YearOptions enumerates years in the order given.
func YearOptions(years []int) []YearOption {
	if len(years) == 0 {
		return nil
	}
	opts := make([]YearOption, len(years))
	for i, y := range years {
		opts[i] = YearOption{Value: y, Label: strconv.Itoa(y)}
	}
	return opts
}

// Years returns the year values of opts.
func Years(opts []YearOption) []int {
	years := make([]int, len(opts))
	for i, o := range opts {
		years[i] = o.Value
	}
	return years
}
