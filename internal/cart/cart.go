// Package cart holds session-scoped shopping carts.
package cart

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the snapshot of a catalog product taken when it is added.
type Product struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
	Image    string          `json:"image,omitempty"`
}

// EffectivePrice is the unit price after discount.
func (p Product) EffectivePrice() decimal.Decimal {
	return p.Price.Sub(p.Discount)
}

// Item is one cart line.
type Item struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is (price - discount) * quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is safe for concurrent use.
type Cart struct {
	mu    sync.RWMutex
	items []Item
}

func New() *Cart {
	return &Cart{}
}

// Add increments the quantity of an existing line or appends a new line
// with quantity 1.
func (c *Cart) Add(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == p.ID {
			c.items[i].Quantity++
			return
		}
	}
	c.items = append(c.items, Item{Product: p, Quantity: 1})
}

// UpdateQuantity sets the quantity of a line. A quantity below 1 removes it.
func (c *Cart) UpdateQuantity(id uuid.UUID, qty int) {
	if qty < 1 {
		c.Remove(id)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Product.ID == id {
			c.items[i].Quantity = qty
			return
		}
	}
}

func (c *Cart) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Subtract takes ordered lines back out of the cart. Each line loses the
// ordered quantity and is dropped once nothing is left, so lines added
// after the snapshot was taken survive.
func (c *Cart) Subtract(ordered []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range ordered {
		for i := range c.items {
			if c.items[i].Product.ID != o.Product.ID {
				continue
			}
			c.items[i].Quantity -= o.Quantity
			if c.items[i].Quantity < 1 {
				c.items = append(c.items[:i], c.items[i+1:]...)
			}
			break
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total
}
