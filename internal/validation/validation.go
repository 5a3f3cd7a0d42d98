// Package validation checks submitted forms before any backend call and
// reports field-level errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the BFF's custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	v.RegisterStructValidation(receiveWithinExpected, model.ReceiveArrivalForm{})

	return &Validator{validate: v}
}

func receiveWithinExpected(sl validator.StructLevel) {
	form := sl.Current().Interface().(model.ReceiveArrivalForm)
	if form.ExpectedQty > 0 && form.ReceivedQty > form.ExpectedQty {
		sl.ReportError(form.ReceivedQty, "received_qty", "ReceivedQty", "ltefield", "expected_qty")
	}
}

// Fields validates payload and returns its field errors, or nil.
func (v *Validator) Fields(payload any) []model.FieldError {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []model.FieldError{{Code: "INVALID", Message: err.Error()}}
	}

	out := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, model.FieldError{
			Field:   fe.Field(),
			Code:    strings.ToUpper(fe.Tag()),
			Message: message(fe),
		})
	}
	return out
}

// For returns a validate function bound to v, suitable for an action.
func For[P any](v *Validator) func(P) []model.FieldError {
	return func(p P) []model.FieldError {
		return v.Fields(p)
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "此项为必填项"
	case "gt":
		return fmt.Sprintf("必须大于 %s", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("长度不能超过 %s 个字符", fe.Param())
		}
		return fmt.Sprintf("不能大于 %s", fe.Param())
	case "ltefield":
		return fmt.Sprintf("不能大于 %s", paramField(fe))
	case "nefield":
		return fmt.Sprintf("不能与 %s 相同", paramField(fe))
	case "oneof":
		return fmt.Sprintf("必须是以下之一: %s", fe.Param())
	}
	return "格式不正确"
}

// paramField maps a struct field parameter to its JSON name.
func paramField(fe validator.FieldError) string {
	p := fe.Param()
	if p == "" {
		return "参考值"
	}
	if strings.Contains(p, "_") || strings.ToLower(p) == p {
		return p
	}
	var b strings.Builder
	for i, r := range p {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	out := b.String()
	return strings.ReplaceAll(out, "_i_d", "_id")
}
