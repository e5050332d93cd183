package models

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	// The dashboard reads amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// FieldError describes one violated constraint, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterStructValidation(transactionParty, TransactionInput{})
	return v
}

// transactionParty enforces that a transaction names exactly the party its
// type calls for: a customer for a sale, a vendor for a purchase and one of
// the two for a payment.
func transactionParty(sl validator.StructLevel) {
	in := sl.Current().Interface().(TransactionInput)
	hasCustomer := in.Customer != nil && strings.TrimSpace(*in.Customer) != ""
	hasVendor := in.Vendor != nil && strings.TrimSpace(*in.Vendor) != ""
	switch in.Type {
	case TransactionSale:
		if !hasCustomer {
			sl.ReportError(in.Customer, "customer", "Customer", "required_for_sale", "")
		}
		if hasVendor {
			sl.ReportError(in.Vendor, "vendor", "Vendor", "excluded_for_sale", "")
		}
	case TransactionPurchase:
		if !hasVendor {
			sl.ReportError(in.Vendor, "vendor", "Vendor", "required_for_purchase", "")
		}
		if hasCustomer {
			sl.ReportError(in.Customer, "customer", "Customer", "excluded_for_purchase", "")
		}
	case TransactionPayment:
		switch {
		case !hasCustomer && !hasVendor:
			sl.ReportError(in.Customer, "customer", "Customer", "required_party", "")
		case hasCustomer && hasVendor:
			sl.ReportError(in.Vendor, "vendor", "Vendor", "single_party", "")
		}
	}
}

// Validate checks v against its declarative constraints. It returns nil or a
// *ValidationError listing every violation.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		out.Fields = append(out.Fields, FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Message: message(field, fe.Tag(), fe.Param()),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must have at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "required_for_sale":
		return "customer is required for a sale"
	case "required_for_purchase":
		return "vendor is required for a purchase"
	case "required_party":
		return "customer or vendor is required for a payment"
	case "excluded_for_sale":
		return "a sale cannot have a vendor"
	case "excluded_for_purchase":
		return "a purchase cannot have a customer"
	case "single_party":
		return "a payment is either from a customer or to a vendor, not both"
	default:
		return field + " is invalid"
	}
}
