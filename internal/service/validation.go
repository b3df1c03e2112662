package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

var (
	personNamePattern = regexp.MustCompile(`^[\p{L}\s'\-]+$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9\s-]{8,20}$`)
)

// Validator checks service inputs and reports failures as a BadRequest
// carrying one entry per invalid field, named by its JSON key.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Money fields compare as numbers.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "paymentmethod", func(fl validator.FieldLevel) bool {
		return domain.PaymentMethod(fl.Field().String()).Valid()
	})
	mustRegister(v, "paymentstatus", func(fl validator.FieldLevel) bool {
		return domain.PaymentStatus(fl.Field().String()).Valid()
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Struct validates s. extra carries checks the tags cannot express; they
// are reported together with the tag failures.
func (v *Validator) Struct(s any, extra ...domain.FieldError) error {
	fields := append([]domain.FieldError(nil), extra...)

	if err := v.validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.Internal(fmt.Errorf("validate input: %w", err))
		}
		for _, fe := range verrs {
			fields = append(fields, domain.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}

	if len(fields) > 0 {
		return domain.BadRequest("validation failed", fields...)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "personname":
		return "may only contain letters, spaces, apostrophes and hyphens"
	case "phone":
		return "must be a valid phone number"
	case "paymentmethod":
		return "must be one of: " + joinMethods()
	case "paymentstatus":
		return "must be one of: Payé, En Attente, En Retard, Annulé"
	default:
		return "is invalid"
	}
}

func joinMethods() string {
	names := make([]string, len(domain.PaymentMethods))
	for i, m := range domain.PaymentMethods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// requiredField reports a missing value for a field the tags cannot mark
// as required, such as pointer money fields where zero is meaningful.
func requiredField(missing bool, name string) []domain.FieldError {
	if missing {
		return []domain.FieldError{{Field: name, Message: "is required"}}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// trimOptional trims s and turns blank values into nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
