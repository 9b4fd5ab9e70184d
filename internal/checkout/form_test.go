package checkout

import (
	"errors"
	"strings"
	"testing"
)

func validForm() CustomerForm {
	return CustomerForm{
		Name:          "أحمد محمد",
		Phone:         "01012345678",
		Governorate:   "القاهرة",
		City:          "مدينة نصر",
		Address:       "15 شارع عباس العقاد، الدور الثالث",
		PaymentMethod: "cod",
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validForm().Validate(); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}
}

func TestValidate_PhonePrefixes(t *testing.T) {
	for _, phone := range []string{"01012345678", "01112345678", "01212345678", "01512345678"} {
		f := validForm()
		f.Phone = phone
		if err := f.Validate(); err != nil {
			t.Errorf("phone %s: expected valid, got %v", phone, err)
		}
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*CustomerForm)
		field string
	}{
		{"short name", func(f *CustomerForm) { f.Name = "أ" }, "customer_name"},
		{"long name", func(f *CustomerForm) { f.Name = strings.Repeat("ا", 101) }, "customer_name"},
		{"ten digit phone", func(f *CustomerForm) { f.Phone = "0101234567" }, "phone"},
		{"twelve digit phone", func(f *CustomerForm) { f.Phone = "010123456789" }, "phone"},
		{"bad prefix", func(f *CustomerForm) { f.Phone = "01312345678" }, "phone"},
		{"letters in phone", func(f *CustomerForm) { f.Phone = "0101234567a" }, "phone"},
		{"missing governorate", func(f *CustomerForm) { f.Governorate = "" }, "governorate"},
		{"missing city", func(f *CustomerForm) { f.City = "" }, "city"},
		{"short address", func(f *CustomerForm) { f.Address = "شارع 9" }, "address"},
		{"long address", func(f *CustomerForm) { f.Address = strings.Repeat("x", 501) }, "address"},
		{"unknown method", func(f *CustomerForm) { f.PaymentMethod = "instapay" }, "payment_method"},
		{"long notes", func(f *CustomerForm) { f.Notes = strings.Repeat("n", 501) }, "notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mut(&f)
			err := f.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !verr.Has(tt.field) {
				t.Errorf("expected field %s in %v", tt.field, verr.Fields)
			}
			if len(verr.Fields) != 1 {
				t.Errorf("expected exactly one violation, got %v", verr.Fields)
			}
		})
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	err := CustomerForm{}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, field := range []string{"customer_name", "phone", "governorate", "city", "address", "payment_method"} {
		if !verr.Has(field) {
			t.Errorf("expected %s to be reported", field)
		}
	}
	for _, fe := range verr.Fields {
		if fe.Message == "" {
			t.Errorf("field %s has no message", fe.Field)
		}
	}
}

func TestNormalize_TrimsBeforeValidation(t *testing.T) {
	f := validForm()
	f.Phone = "  01012345678 "
	f.Name = " أ "
	n := f.Normalize()
	if n.Phone != "01012345678" {
		t.Errorf("expected trimmed phone, got %q", n.Phone)
	}
	var verr *ValidationError
	if err := n.Validate(); !errors.As(err, &verr) || !verr.Has("customer_name") {
		t.Errorf("expected trimmed single-letter name to be rejected, got %v", err)
	}
}
