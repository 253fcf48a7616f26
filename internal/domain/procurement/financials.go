package procurement

import (
	"github.com/shopspring/decimal"
)

// Tax is the GST breakdown carried by orders and invoices.
type Tax struct {
	CGST  decimal.Decimal `json:"cgst"`
	SGST  decimal.Decimal `json:"sgst"`
	IGST  decimal.Decimal `json:"igst"`
	Total decimal.Decimal `json:"total"`
}

// Normalized fills Total from the components when the caller supplied only the split.
func (t Tax) Normalized() Tax {
	if t.Total.IsZero() {
		t.Total = t.CGST.Add(t.SGST).Add(t.IGST)
	}
	return t
}

func (t Tax) validate() error {
	parts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"tax.cgst", t.CGST}, {"tax.sgst", t.SGST}, {"tax.igst", t.IGST}, {"tax.total", t.Total},
	}
	for _, p := range parts {
		if p.value.IsNegative() {
			return validationError("%s must not be negative", p.name)
		}
	}
	return nil
}

// Financials is the derived money block shared by purchase orders and invoices.
//
//	TotalAmount = Subtotal + Tax.Total + ShippingCharges - Discount
//	DueAmount   = TotalAmount - PaidAmount
type Financials struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             Tax             `json:"tax"`
	Discount        decimal.Decimal `json:"discount"`
	ShippingCharges decimal.Decimal `json:"shipping_charges"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	DueAmount       decimal.Decimal `json:"due_amount"`
}

// CalculateFinancials derives the money block from line totals and the
// order-level adjustments. It is pure and idempotent.
func CalculateFinancials(lineTotals []decimal.Decimal, tax Tax, shipping, discount, paid decimal.Decimal) (Financials, error) {
	tax = tax.Normalized()
	if err := tax.validate(); err != nil {
		return Financials{}, err
	}
	if shipping.IsNegative() {
		return Financials{}, validationError("shipping charges must not be negative")
	}
	if discount.IsNegative() {
		return Financials{}, validationError("discount must not be negative")
	}
	if paid.IsNegative() {
		return Financials{}, validationError("paid amount must not be negative")
	}

	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		if lt.IsNegative() {
			return Financials{}, validationError("line total must not be negative")
		}
		subtotal = subtotal.Add(lt)
	}

	total := subtotal.Add(tax.Total).Add(shipping).Sub(discount)
	if total.IsNegative() {
		return Financials{}, validationError("discount %s exceeds the order value", discount.String())
	}
	if paid.GreaterThan(total) {
		return Financials{}, validationError("paid amount %s exceeds total amount %s", paid.String(), total.String())
	}

	return Financials{
		Subtotal:        subtotal,
		Tax:             tax,
		Discount:        discount,
		ShippingCharges: shipping,
		TotalAmount:     total,
		PaidAmount:      paid,
		DueAmount:       total.Sub(paid),
	}, nil
}

// WithPaid returns a copy with PaidAmount replaced and DueAmount re-derived.
func (f Financials) WithPaid(paid decimal.Decimal) Financials {
	f.PaidAmount = paid
	f.DueAmount = f.TotalAmount.Sub(paid)
	return f
}
