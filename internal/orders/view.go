package orders

import (
	"time"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

type ItemView struct {
	Number             string             `json:"number"`
	ProductID          int64              `json:"product"`
	ProductName        string             `json:"product_name"`
	Quantity           int                `json:"quantity"`
	Status             domain.OrderStatus `json:"status"`
	IsDiscountDay      bool               `json:"is_discount_day"`
	DiscountPercentage string             `json:"discount_percentage"`
	UnitPrice          string             `json:"unit_price"`
	OriginalSubtotal   string             `json:"original_subtotal"`
	DiscountAmount     string             `json:"discount_amount"`
	FinalSubtotal      string             `json:"final_subtotal"`
	BusinessDate       string             `json:"business_date"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// View is the wire representation of an order with its derived amounts.
type View struct {
	Number              string               `json:"number"`
	BuyerID             int64                `json:"user"`
	Status              domain.OrderStatus   `json:"status"`
	Payment             domain.PaymentMethod `json:"payment"`
	IsPaid              bool                 `json:"is_paid"`
	Items               []ItemView           `json:"order_items"`
	TotalOriginalAmount string               `json:"total_original_amount"`
	TotalDiscountAmount string               `json:"total_discount_amount"`
	TotalAmount         string               `json:"total_amount"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

func NewView(o *domain.Order) View {
	items := make([]ItemView, 0, len(o.Items))
	for _, item := range o.Items {
		sub := item.Subtotal()
		pct := "0.00"
		if item.IsDiscountDay {
			pct = pricing.Format(item.DiscountPercentage)
		}
		items = append(items, ItemView{
			Number:             item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			Quantity:           item.Quantity,
			Status:             item.Status,
			IsDiscountDay:      item.IsDiscountDay,
			DiscountPercentage: pct,
			UnitPrice:          pricing.Format(item.UnitPrice),
			OriginalSubtotal:   pricing.Format(sub.Original),
			DiscountAmount:     pricing.Format(sub.Discount),
			FinalSubtotal:      pricing.Format(sub.Final),
			BusinessDate:       item.BusinessDate.Format(domain.DateLayout),
			CreatedAt:          item.CreatedAt,
			UpdatedAt:          item.UpdatedAt,
		})
	}

	totals := o.Totals()
	return View{
		Number:              o.ID,
		BuyerID:             o.BuyerID,
		Status:              o.Status,
		Payment:             o.Payment,
		IsPaid:              o.IsPaid,
		Items:               items,
		TotalOriginalAmount: pricing.Format(totals.Original),
		TotalDiscountAmount: pricing.Format(totals.Discount),
		TotalAmount:         pricing.Format(totals.Final),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func newViews(orders []domain.Order) []View {
	views := make([]View, 0, len(orders))
	for i := range orders {
		views = append(views, NewView(&orders[i]))
	}
	return views
}
