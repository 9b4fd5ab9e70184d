// Package checkout prices deliveries and assembles validated orders from a
// cart and the customer form.
package checkout

import "github.com/shopspring/decimal"

// FeeTable maps a governorate to its delivery fee.
type FeeTable map[string]decimal.Decimal

// Average is the mean of all configured fees rounded to 2 places, the
// precision of every stored money column. Zero for an empty table.
func (t FeeTable) Average() decimal.Decimal {
	if len(t) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, fee := range t {
		sum = sum.Add(fee)
	}
	return sum.Div(decimal.NewFromInt(int64(len(t)))).Round(2)
}

// Rates is the pricing input loaded from store settings and the fee table.
type Rates struct {
	Fees FeeTable
	// Threshold of zero disables free delivery.
	Threshold decimal.Decimal
}

// Delivery is the resolved delivery price for one checkout.
type Delivery struct {
	Fee    decimal.Decimal `json:"fee"`
	IsFree bool            `json:"is_free"`
	Total  decimal.Decimal `json:"total"`
}

// ResolveDelivery computes the delivery fee and order total. A region missing
// from the table (including no region yet) is charged the average fee.
func ResolveDelivery(subtotal decimal.Decimal, region string, fees FeeTable, threshold decimal.Decimal) Delivery {
	if threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold) {
		return Delivery{Fee: decimal.Zero, IsFree: true, Total: subtotal}
	}

	fee, ok := fees[region]
	if !ok {
		fee = fees.Average()
	}
	return Delivery{Fee: fee, Total: subtotal.Add(fee)}
}

// Resolve is ResolveDelivery with the receiver's fee table and threshold.
func (r Rates) Resolve(subtotal decimal.Decimal, region string) Delivery {
	return ResolveDelivery(subtotal, region, r.Fees, r.Threshold)
}
