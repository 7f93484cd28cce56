package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar days.
const DateLayout = "2006-01-02"

// DiscountDay is a seller-declared calendar day on which all of the seller's
// products sell at Percentage off. Date is midnight UTC of that day.
type DiscountDay struct {
	ID         int64
	SellerID   int64
	Date       time.Time
	Percentage decimal.Decimal
	IsActive   bool
	CreatedAt  time.Time
}

// ParseDate parses a YYYY-MM-DD calendar day into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
