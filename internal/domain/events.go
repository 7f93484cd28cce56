package domain

import "time"

const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
)

type OrderEventItem struct {
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	Quantity      int    `json:"quantity"`
	IsDiscountDay bool   `json:"is_discount_day"`
	FinalSubtotal string `json:"final_subtotal"`
}

type OrderCreatedEvent struct {
	OrderID     string           `json:"order_id"`
	BuyerID     int64            `json:"buyer_id"`
	Payment     PaymentMethod    `json:"payment"`
	Items       []OrderEventItem `json:"items"`
	TotalAmount string           `json:"total_amount"`
	Timestamp   time.Time        `json:"timestamp"`
}

type OrderPaidEvent struct {
	OrderID   string        `json:"order_id"`
	BuyerID   int64         `json:"buyer_id"`
	Payment   PaymentMethod `json:"payment"`
	Amount    string        `json:"amount"`
	Status    OrderStatus   `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}
