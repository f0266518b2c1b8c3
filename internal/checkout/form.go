package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"storefront/internal/model"
)

// Input holds the checkout form fields as the user typed them.
type Input struct {
	Email            string `json:"email" validate:"required,email"`
	StreetAddress    string `json:"street_address" validate:"required"`
	ZipCode          string `json:"zip_code" validate:"required,zip"`
	City             string `json:"city" validate:"required"`
	State            string `json:"state" validate:"required"`
	Country          string `json:"country" validate:"required"`
	CreditCardNumber string `json:"credit_card_number" validate:"required,card"`
	ExpMonth         string `json:"credit_card_expiration_month" validate:"required,month"`
	ExpYear          string `json:"credit_card_expiration_year" validate:"required,year"`
	CVV              string `json:"credit_card_cvv" validate:"required,cvv"`
}

// DefaultForm returns the form as pre-populated on the cart page.
// The year defaults to the first offered year.
func DefaultForm(years []int) Input {
	in := Input{
		Email:            "someone@example.com",
		StreetAddress:    "1600 Amphitheatre Parkway",
		ZipCode:          "94043",
		City:             "Mountain View",
		State:            "CA",
		Country:          "United States",
		CreditCardNumber: "4432-8015-6152-0454",
		ExpMonth:         "12",
		CVV:              "672",
	}
	if len(years) > 0 {
		in.ExpYear = strconv.Itoa(years[0])
	}
	return in
}

var patterns = map[string]*regexp.Regexp{
	"zip":   regexp.MustCompile(`^\d{4,5}$`),
	"card":  regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{4}$`),
	"month": regexp.MustCompile(`^(0?[1-9]|1[0-2])$`),
	"year":  regexp.MustCompile(`^\d{4}$`),
	"cvv":   regexp.MustCompile(`^\d{3}$`),
}

var reasons = map[string]string{
	"required": "is required",
	"email":    "must be an e-mail address",
	"zip":      "must be 4 or 5 digits",
	"card":     "must look like 1234-5678-9012-3456",
	"month":    "must be a month between 1 and 12",
	"year":     "must be a four digit year",
	"cvv":      "must be 3 digits",
}

// newValidator returns a validator with the checkout field tags registered.
// Field names in errors are the JSON names of the form.
func newValidator() (*validatorv10.Validate, error) {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, re := range patterns {
		err := v.RegisterValidation(tag, func(fl validatorv10.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
		if err != nil {
			return nil, fmt.Errorf("register %q validation: %w", tag, err)
		}
	}
	return v, nil
}

// Parse validates in and converts it to the wire form. years, when non-empty,
// restricts the expiration year to the offered options. The first failing field
// is reported as a *model.ValidationError.
func Parse(v *validatorv10.Validate, in Input, years []int) (model.CheckoutForm, error) {
	in = in.trimmed()

	if err := v.Struct(in); err != nil {
		var verrs validatorv10.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason, ok := reasons[fe.Tag()]
			if !ok {
				reason = "is invalid"
			}
			return model.CheckoutForm{}, model.NewValidationError(fe.Field(), reason)
		}
		return model.CheckoutForm{}, err
	}

	// The patterns above guarantee these parse.
	zip, _ := strconv.Atoi(in.ZipCode)
	month, _ := strconv.Atoi(in.ExpMonth)
	year, _ := strconv.Atoi(in.ExpYear)
	cvv, _ := strconv.Atoi(in.CVV)

	if len(years) > 0 && !slices.Contains(years, year) {
		return model.CheckoutForm{}, model.NewValidationError("credit_card_expiration_year", "must be one of the offered years")
	}

	return model.CheckoutForm{
		Email:            in.Email,
		StreetAddress:    in.StreetAddress,
		ZipCode:          zip,
		City:             in.City,
		State:            in.State,
		Country:          in.Country,
		CreditCardNumber: in.CreditCardNumber,
		ExpMonth:         month,
		ExpYear:          year,
		CVV:              cvv,
	}, nil
}

func (in Input) trimmed() Input {
	return Input{
		Email:            strings.TrimSpace(in.Email),
		StreetAddress:    strings.TrimSpace(in.StreetAddress),
		ZipCode:          strings.TrimSpace(in.ZipCode),
		City:             strings.TrimSpace(in.City),
		State:            strings.TrimSpace(in.State),
		Country:          strings.TrimSpace(in.Country),
		CreditCardNumber: strings.TrimSpace(in.CreditCardNumber),
		ExpMonth:         strings.TrimSpace(in.ExpMonth),
		ExpYear:          strings.TrimSpace(in.ExpYear),
		CVV:              strings.TrimSpace(in.CVV),
	}
}

// With returns in with every non-empty field of over applied, for callers
// that edit only some fields of the pre-populated form.
func (in Input) With(over Input) Input {
	for _, f := range []struct {
		dst *string
		v   string
	}{
		{&in.Email, over.Email},
		{&in.StreetAddress, over.StreetAddress},
		{&in.ZipCode, over.ZipCode},
		{&in.City, over.City},
		{&in.State, over.State},
		{&in.Country, over.Country},
		{&in.CreditCardNumber, over.CreditCardNumber},
		{&in.ExpMonth, over.ExpMonth},
		{&in.ExpYear, over.ExpYear},
		{&in.CVV, over.CVV},
	} {
		if f.v != "" {
			*f.dst = f.v
		}
	}
	return in
}
