package checkout

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/cart"
	"github.com/waraqa-store/api/internal/enum"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrMissingProof = errors.New("vodafone cash orders require a transfer screenshot")
)

// Line is a priced order line frozen from a cart item.
type Line struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"product_name"`
	Price          decimal.Decimal `json:"product_price"`
	Discount       decimal.Decimal `json:"product_discount"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
	Quantity       int             `json:"quantity"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// Order is an assembled, validated order. It has no setters.
type Order struct {
	customer CustomerForm
	lines    []Line
	subtotal decimal.Decimal
	delivery Delivery
	proof    *ProofImage
}

// Assemble validates the form, the cart and the payment proof and derives
// every computed amount. Nothing is taken from the caller's own totals.
func Assemble(form CustomerForm, items []cart.Item, rates Rates, proof *ProofImage) (*Order, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	if form.PaymentMethod == enum.PaymentMethodVodafoneCash {
		if proof == nil {
			return nil, ErrMissingProof
		}
		p := *proof
		p.Data = append([]byte(nil), proof.Data...)
		if err := p.Check(); err != nil {
			return nil, err
		}
		proof = &p
	} else {
		proof = nil
	}

	lines := make([]Line, 0, len(items))
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		l := Line{
			ProductID:      it.Product.ID,
			Name:           it.Product.Name,
			Price:          it.Product.Price,
			Discount:       it.Product.Discount,
			EffectivePrice: it.Product.EffectivePrice(),
			Quantity:       it.Quantity,
			LineTotal:      it.LineTotal(),
		}
		lines = append(lines, l)
		subtotal = subtotal.Add(l.LineTotal)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	return &Order{
		customer: form,
		lines:    lines,
		subtotal: subtotal,
		delivery: rates.Resolve(subtotal, form.Governorate),
		proof:    proof,
	}, nil
}

func (o *Order) Customer() CustomerForm { return o.customer }

func (o *Order) PaymentMethod() string { return o.customer.PaymentMethod }

// Lines returns a copy of the order lines.
func (o *Order) Lines() []Line {
	out := make([]Line, len(o.lines))
	copy(out, o.lines)
	return out
}

func (o *Order) Subtotal() decimal.Decimal { return o.subtotal }

func (o *Order) DeliveryFee() decimal.Decimal { return o.delivery.Fee }

func (o *Order) IsFreeDelivery() bool { return o.delivery.IsFree }

func (o *Order) Total() decimal.Decimal { return o.delivery.Total }

// Proof returns a copy of the payment proof, or nil.
func (o *Order) Proof() *ProofImage {
	if o.proof == nil {
		return nil
	}
	p := *o.proof
	p.Data = append([]byte(nil), o.proof.Data...)
	return &p
}

// TotalItems is the sum of line quantities.
func (o *Order) TotalItems() int {
	n := 0
	for _, l := range o.lines {
		n += l.Quantity
	}
	return n
}
