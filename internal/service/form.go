package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"tinbox/internal/model"
)

// AmountInput is the raw amount as submitted. It accepts a JSON number or
// a JSON string so that bad input can be reported instead of rejected by
// the decoder.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	*a = AmountInput(data)
	return nil
}

// Form is an add/edit submission before validation.
type Form struct {
	StoreName string      `json:"store_name" validate:"required"`
	Location  string      `json:"location" validate:"required"`
	Collected string      `json:"collected" validate:"omitempty,collected"`
	Amount    AmountInput `json:"amount" validate:"omitempty,amount"`
	Notes     string      `json:"notes"`
}

// FormFromRecord pre-fills a form with a stored record.
func FormFromRecord(d *model.Donation) Form {
	return Form{
		StoreName: d.StoreName,
		Location:  d.Location,
		Collected: string(d.Collected),
		Amount:    AmountInput(decimal.NewFromFloat(d.Amount).String()),
		Notes:     d.Notes,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("collected", func(fl validator.FieldLevel) bool {
		_, err := model.ParseCollected(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := parseAmount(fl.Field().String())
		return err == nil
	})
	return v
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, errNegativeAmount
	}
	if math.IsInf(amount.InexactFloat64(), 0) {
		return decimal.Zero, errAmountTooLarge
	}
	return amount, nil
}

var (
	errNegativeAmount = errors.New("amount must not be negative")
	errAmountTooLarge = errors.New("amount is too large")
)

// Parse validates the form and converts it to record fields. Store name and
// location are trimmed, notes are kept as entered. Collected defaults to
// "no" and Amount to 0 when left empty.
func (f Form) Parse() (model.DonationFields, error) {
	f.StoreName = strings.TrimSpace(f.StoreName)
	f.Location = strings.TrimSpace(f.Location)
	f.Collected = strings.TrimSpace(f.Collected)
	f.Amount = AmountInput(strings.TrimSpace(string(f.Amount)))

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return model.DonationFields{}, err
		}
		out := &ValidationError{}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return model.DonationFields{}, out
	}

	collected, _ := model.ParseCollected(f.Collected)
	amount, _ := parseAmount(string(f.Amount))

	return model.DonationFields{
		StoreName: f.StoreName,
		Location:  f.Location,
		Collected: collected,
		Amount:    amount.InexactFloat64(),
		Notes:     f.Notes,
	}, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "collected":
		return "collected must be yes or no"
	case "amount":
		return "amount must be a non-negative number"
	}
	return fe.Field() + " is invalid"
}
