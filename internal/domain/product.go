package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity bounds stock levels and ordered quantities to the range of the
// INTEGER columns that store them.
const MaxQuantity = math.MaxInt32

type ProductStatus string

const (
	ProductStatusAvailable  ProductStatus = "Available"
	ProductStatusOutOfStock ProductStatus = "Out of Stocks"
)

// StatusForStock derives the catalog status from the stock level.
func StatusForStock(stock int) ProductStatus {
	if stock > 0 {
		return ProductStatusAvailable
	}
	return ProductStatusOutOfStock
}

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Status      ProductStatus
	OwnerID     *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

func (p *Product) Deleted() bool {
	return p.DeletedAt != nil
}

// SetStock updates stock and keeps Status in sync with it.
func (p *Product) SetStock(stock int) {
	p.Stock = stock
	p.Status = StatusForStock(stock)
}

func (p *Product) OwnedBy(userID int64) bool {
	return p.OwnerID != nil && *p.OwnerID == userID
}
