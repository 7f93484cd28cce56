// Package pricing computes line and order amounts. Every function is pure.
package pricing

import "github.com/shopspring/decimal"

// CurrencyPlaces is the precision of every persisted currency amount.
const CurrencyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

type Subtotal struct {
	Original decimal.Decimal `json:"original_subtotal"`
	Discount decimal.Decimal `json:"discount_amount"`
	Final    decimal.Decimal `json:"final_subtotal"`
}

type Totals struct {
	Original decimal.Decimal `json:"total_original_amount"`
	Discount decimal.Decimal `json:"total_discount_amount"`
	Final    decimal.Decimal `json:"total_amount"`
}

// Line prices a single order line. The discount only applies when discounted
// is true; percentage is then taken as 0-100.
func Line(price decimal.Decimal, quantity int, percentage decimal.Decimal, discounted bool) Subtotal {
	original := price.Mul(decimal.NewFromInt(int64(quantity))).Round(CurrencyPlaces)

	discount := zero
	if discounted && percentage.IsPositive() {
		discount = DiscountAmount(original, percentage)
	}

	return Subtotal{
		Original: original,
		Discount: discount,
		Final:    original.Sub(discount),
	}
}

// DiscountAmount returns amount × percentage/100 rounded half-up to cents.
func DiscountAmount(amount, percentage decimal.Decimal) decimal.Decimal {
	if !percentage.IsPositive() {
		return zero
	}
	if percentage.GreaterThan(hundred) {
		percentage = hundred
	}
	return amount.Mul(percentage).Div(hundred).Round(CurrencyPlaces)
}

func Sum(lines ...Subtotal) Totals {
	totals := Totals{Original: zero, Discount: zero, Final: zero}
	for _, l := range lines {
		totals = totals.Add(l)
	}
	return totals
}

// Add returns t with line l included.
func (t Totals) Add(l Subtotal) Totals {
	return Totals{
		Original: t.Original.Add(l.Original),
		Discount: t.Discount.Add(l.Discount),
		Final:    t.Final.Add(l.Final),
	}
}

func (t Totals) Merge(o Totals) Totals {
	return t.Add(Subtotal{Original: o.Original, Discount: o.Discount, Final: o.Final})
}

// ValidPercentage reports whether p is within [0, 100].
func ValidPercentage(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// Format renders an amount with exactly two decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(CurrencyPlaces)
}
