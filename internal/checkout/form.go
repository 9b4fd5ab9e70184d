package checkout

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/waraqa-store/api/internal/enum"
)

var egyptianPhone = regexp.MustCompile(`^01[0125][0-9]{8}$`)

// CustomerForm is the checkout form as entered by the customer.
type CustomerForm struct {
	Name          string `json:"customer_name"`
	Phone         string `json:"phone"`
	Governorate   string `json:"governorate"`
	City          string `json:"city"`
	Address       string `json:"address"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes,omitempty"`
}

// FieldError is one violated form constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated field of a form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

// Has reports whether field is among the violations.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Normalize trims surrounding whitespace from every field.
func (f CustomerForm) Normalize() CustomerForm {
	return CustomerForm{
		Name:          strings.TrimSpace(f.Name),
		Phone:         strings.TrimSpace(f.Phone),
		Governorate:   strings.TrimSpace(f.Governorate),
		City:          strings.TrimSpace(f.City),
		Address:       strings.TrimSpace(f.Address),
		PaymentMethod: strings.TrimSpace(f.PaymentMethod),
		Notes:         strings.TrimSpace(f.Notes),
	}
}

// Validate returns a *ValidationError naming every violated field, or nil.
func (f CustomerForm) Validate() error {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	switch n := utf8.RuneCountInString(f.Name); {
	case n < 2:
		add("customer_name", "الاسم يجب أن يكون حرفين على الأقل")
	case n > 100:
		add("customer_name", "الاسم يجب ألا يزيد عن 100 حرف")
	}

	switch {
	case len(f.Phone) != 11:
		add("phone", "رقم الهاتف يجب أن يكون 11 رقم")
	case !egyptianPhone.MatchString(f.Phone):
		add("phone", "أدخل رقم هاتف مصري صحيح (01xxxxxxxxx)")
	}

	if f.Governorate == "" {
		add("governorate", "اختر المحافظة")
	}
	if f.City == "" {
		add("city", "أدخل المدينة")
	}

	switch n := utf8.RuneCountInString(f.Address); {
	case n < 10:
		add("address", "أدخل العنوان بالتفصيل")
	case n > 500:
		add("address", "العنوان يجب ألا يزيد عن 500 حرف")
	}

	if f.PaymentMethod != enum.PaymentMethodCOD && f.PaymentMethod != enum.PaymentMethodVodafoneCash {
		add("payment_method", "اختر طريقة الدفع")
	}

	if utf8.RuneCountInString(f.Notes) > 500 {
		add("notes", "الملاحظات يجب ألا تزيد عن 500 حرف")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
