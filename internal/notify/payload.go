// Package notify implements the order notification function: per-source
// rate limiting, payment-proof upload and the store email.
package notify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/enum"
)

var (
	ErrInvalidPayload = errors.New("invalid order data")
	ErrRateLimited    = errors.New("too many orders, please try again later")
)

var phonePattern = regexp.MustCompile(`^01[0125][0-9]{8}$`)

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Address struct {
	Governorate string `json:"governorate"`
	City        string `json:"city"`
	FullAddress string `json:"fullAddress"`
}

type Payment struct {
	Method              string           `json:"method"`
	PrepaidAmount       *decimal.Decimal `json:"prepaidAmount,omitempty"`
	RemainingAmount     *decimal.Decimal `json:"remainingAmount,omitempty"`
	PrepaidVia          string           `json:"prepaidVia,omitempty"`
	TransferImageBase64 string           `json:"transferImageBase64,omitempty"`
	TransferImageType   string           `json:"transferImageType,omitempty"`
	VodafoneCashNumber  string           `json:"vodafoneCashNumber,omitempty"`
}

type Item struct {
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
	Quantity int              `json:"quantity"`
}

// UnitPrice is price minus discount.
func (i Item) UnitPrice() decimal.Decimal {
	if i.Discount == nil {
		return i.Price
	}
	return i.Price.Sub(*i.Discount)
}

func (i Item) HasDiscount() bool {
	return i.Discount != nil && i.Discount.IsPositive()
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Payload is the JSON order document accepted by the function.
type Payload struct {
	// OrderID is shown in the email. It is display only.
	OrderID         string           `json:"orderId,omitempty"`
	Customer        Customer         `json:"customer"`
	DeliveryAddress Address          `json:"deliveryAddress"`
	Payment         Payment          `json:"payment"`
	Items           []Item           `json:"items"`
	Subtotal        *decimal.Decimal `json:"subtotal,omitempty"`
	DeliveryFee     *decimal.Decimal `json:"deliveryFee,omitempty"`
	IsFreeDelivery  bool             `json:"isFreeDelivery,omitempty"`
	Total           decimal.Decimal  `json:"total"`
	OrderDate       string           `json:"orderDate"`
}

// PayloadError lists the schema violations of a payload.
type PayloadError struct {
	Details []string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPayload, strings.Join(e.Details, "; "))
}

func (e *PayloadError) Unwrap() error { return ErrInvalidPayload }

var paymentMethods = map[string]bool{
	enum.PaymentMethodCOD:          true,
	enum.PaymentMethodVodafoneCash: true,
	enum.PaymentMethodInstapay:     true,
	enum.PaymentMethodPartial:      true,
}

func between(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func negative(d *decimal.Decimal) bool {
	return d != nil && d.IsNegative()
}

// Validate checks the payload shape.
func (p *Payload) Validate() error {
	var details []string
	bad := func(format string, args ...any) {
		details = append(details, fmt.Sprintf(format, args...))
	}

	if !between(p.Customer.Name, 2, 100) {
		bad("customer.name must be 2-100 characters")
	}
	if !phonePattern.MatchString(p.Customer.Phone) {
		bad("customer.phone: Invalid Egyptian phone number")
	}
	if !between(p.DeliveryAddress.Governorate, 1, 100) {
		bad("deliveryAddress.governorate must be 1-100 characters")
	}
	if !between(p.DeliveryAddress.City, 1, 100) {
		bad("deliveryAddress.city must be 1-100 characters")
	}
	if !between(p.DeliveryAddress.FullAddress, 10, 500) {
		bad("deliveryAddress.fullAddress must be 10-500 characters")
	}
	if !paymentMethods[p.Payment.Method] {
		bad("payment.method %q is not supported", p.Payment.Method)
	}
	if negative(p.Payment.PrepaidAmount) || negative(p.Payment.RemainingAmount) {
		bad("payment amounts must be non-negative")
	}

	if len(p.Items) < 1 || len(p.Items) > 100 {
		bad("items must contain 1-100 entries")
	}
	for i, it := range p.Items {
		if !between(it.Name, 1, 200) {
			bad("items[%d].name must be 1-200 characters", i)
		}
		if it.Price.IsNegative() {
			bad("items[%d].price must be non-negative", i)
		}
		if negative(it.Discount) {
			bad("items[%d].discount must be non-negative", i)
		}
		if it.Quantity < 1 || it.Quantity > 1000 {
			bad("items[%d].quantity must be 1-1000", i)
		}
	}

	if negative(p.Subtotal) || negative(p.DeliveryFee) || p.Total.IsNegative() {
		bad("totals must be non-negative")
	}
	if p.OrderDate == "" {
		bad("orderDate is required")
	}

	if len(details) > 0 {
		return &PayloadError{Details: details}
	}
	return nil
}
