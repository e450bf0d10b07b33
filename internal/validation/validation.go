package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/payment-tracker/internal/domain"
	customError "github.com/segyhp/payment-tracker/pkg/errors"
)

// messages keyed by "<json field>.<tag>"
var messages = map[string]string{
	"name.notblank":                 "Name is required",
	"phone.notblank":                "Phone number is required",
	"total_amount.present":          "Total amount is required",
	"total_amount.positive":         "Total amount must be positive",
	"date_of_amount_taken.required": "Date of amount taken is required",
	"payment_date.required":         "Payment date is required",
	"amount.present":                "Amount is required",
	"amount.positive":               "Amount must be positive",
	"status.oneof":                  "Status must be one of PAID, DUE, MISSED",
	"week_number.required":          "Week number is required",
	"week_number.gt":                "Week number must be positive",
	"customer_id.required":          "Customer is required",
}

// Validator enforces the write-time field constraints of customers and payments.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// absent optional values surface as nil so the first rule rejects them.
	// Present decimals surface as their string form, so a zero amount still
	// counts as present and only "positive" fails.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(decimal.NullDecimal)
		if !ok || !d.Valid {
			return nil
		}
		return d.Decimal.String()
	}, decimal.NullDecimal{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(domain.Date)
		if !ok || !d.Valid {
			return nil
		}
		return d.Time
	}, domain.Date{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		id, ok := field.Interface().(uuid.UUID)
		if !ok || id == uuid.Nil {
			return nil
		}
		return id.String()
	}, uuid.UUID{})

	for tag, fn := range map[string]validator.Func{
		"notblank": validators.NotBlank,
		"present":  decimalPresent,
		"positive": decimalPositive,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validator: %v", tag, err))
		}
	}

	return &Validator{validate: v}
}

// Struct validates s and reports every failing field as a VALIDATION_FAILED
// business error.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}

	fields := make([]customError.FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, customError.FieldError{
			Field:   fe.Field(),
			Message: message(fe.Field(), fe.Tag()),
		})
	}
	return customError.WrapValidation(fields)
}

func message(field, tag string) string {
	if msg, ok := messages[field+"."+tag]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed on the '%s' rule", field, tag)
}

// decimalOf reads a decimal.NullDecimal field, either raw or as the string
// form produced by the type func above.
func decimalOf(fl validator.FieldLevel) (decimal.Decimal, bool) {
	switch v := fl.Field().Interface().(type) {
	case decimal.NullDecimal:
		return v.Decimal, v.Valid
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// decimalPresent fails on an absent amount. A present zero passes.
func decimalPresent(fl validator.FieldLevel) bool {
	_, ok := decimalOf(fl)
	return ok
}

func decimalPositive(fl validator.FieldLevel) bool {
	d, ok := decimalOf(fl)
	return ok && d.IsPositive()
}
