package checkout

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kingrea/storefront/internal/apperr"
)

// Payment holds the card fields of the checkout form. Card data never
// leaves the process and is not persisted.
type Payment struct {
	CardNumber string `validate:"required,numeric,min=12,max=19"`
	CardName   string `validate:"required"`
	Expiry     string `validate:"required,expiry"`
	CVV        string `validate:"required,numeric,min=3,max=4"`
}

func (p Payment) last4() string {
	if len(p.CardNumber) < 4 {
		return p.CardNumber
	}
	return p.CardNumber[len(p.CardNumber)-4:]
}

// Shipping holds the delivery address.
type Shipping struct {
	Address string `validate:"required"`
	City    string `validate:"required"`
	Country string `validate:"required"`
	ZipCode string `validate:"required,alphanum"`
}

// Details is everything the checkout form collects.
type Details struct {
	Payment  Payment
	Shipping Shipping
}

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)

var validate = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	return v
}()

func (d Details) normalized() Details {
	d.Payment.CardNumber = strings.NewReplacer(" ", "", "-", "").Replace(d.Payment.CardNumber)
	d.Payment.CardName = strings.TrimSpace(d.Payment.CardName)
	d.Payment.Expiry = strings.TrimSpace(d.Payment.Expiry)
	d.Payment.CVV = strings.TrimSpace(d.Payment.CVV)
	d.Shipping.Address = strings.TrimSpace(d.Shipping.Address)
	d.Shipping.City = strings.TrimSpace(d.Shipping.City)
	d.Shipping.Country = strings.TrimSpace(d.Shipping.Country)
	d.Shipping.ZipCode = strings.ReplaceAll(strings.TrimSpace(d.Shipping.ZipCode), " ", "")
	return d
}

// Validate checks every form field and reports the first invalid one.
func (d Details) Validate() error {
	err := validate.Struct(d.normalized())
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return apperr.Validationf("checkout.details", "%s is missing or invalid", fieldLabel(fieldErrs[0].Field()))
	}
	return apperr.Validation("checkout.details", err.Error())
}

var fieldLabels = map[string]string{
	"CardNumber": "card number",
	"CardName":   "name on card",
	"Expiry":     "expiry date",
	"CVV":        "CVV",
	"Address":    "address",
	"City":       "city",
	"Country":    "country",
	"ZipCode":    "zip code",
}

func fieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return strings.ToLower(field)
}
