package domain

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindForbidden         ErrorKind = "forbidden"
	KindUnauthorized      ErrorKind = "unauthorized"
)

// HTTPStatus maps an error kind to the response status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInsufficientStock:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a caller-visible failure. Two errors match under errors.Is when
// their codes are equal, so the package-level values below act as sentinels
// even after With* has produced a copy.
type Error struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

func (e *Error) WithMessagef(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

func (e *Error) WithDetail(key string, value any) *Error {
	c := *e
	c.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	c.Details[key] = value
	return &c
}

// AsError extracts the *Error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func Validation(code, field, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Field: field, Message: message}
}

var (
	ErrInvalidRequest = Validation("invalid_request", "", "invalid request body")
	ErrInvalidField   = Validation("invalid_field", "", "invalid value")

	ErrUnauthorized = &Error{Kind: KindUnauthorized, Code: "unauthorized", Message: "authentication required"}
	ErrForbidden    = &Error{Kind: KindForbidden, Code: "forbidden", Message: "operation not permitted for this user"}

	ErrProductNotFound   = &Error{Kind: KindNotFound, Code: "product_not_found", Field: "product_id", Message: "product not found"}
	ErrProductNotDeleted = Validation("product_not_deleted", "id", "product is not deleted")

	ErrStockOutOfRange   = Validation("stock_out_of_range", "stock", fmt.Sprintf("stock must not exceed %d", MaxQuantity))
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Code: "insufficient_stock", Field: "quantity", Message: "insufficient stock available"}

	ErrDiscountDayNotFound  = &Error{Kind: KindNotFound, Code: "discount_day_not_found", Field: "id", Message: "discount day not found"}
	ErrDiscountDateInPast   = Validation("discount_date_in_past", "date", "Discount date cannot be in the past.")
	ErrInvalidPercentage    = Validation("invalid_discount_percentage", "discount_percentage", "discount percentage must be between 0 and 100")
	ErrDuplicateDiscountDay = &Error{Kind: KindConflict, Code: "duplicate_discount_day", Field: "date", Message: "a discount day already exists for this date"}

	ErrOrderNotFound     = &Error{Kind: KindNotFound, Code: "order_not_found", Field: "order_number", Message: "order not found"}
	ErrInvalidPayment    = Validation("invalid_payment", "payment", "invalid payment method")
	ErrInvalidStatus     = Validation("invalid_status", "status", "invalid order status")
	ErrStatusTransition  = Validation("invalid_status_transition", "status", "order status cannot change this way")
	ErrItemsImmutable    = Validation("items_immutable", "items", "order items cannot be modified after creation")
	ErrPaymentLocked     = Validation("payment_locked", "payment", "payment method cannot change after the order is paid")
	ErrAmountTooLow      = Validation("amount_too_low", "amount", "amount is lower than the order total")
	ErrCardNotAllowed    = Validation("card_not_allowed", "card_number", "card number must not be supplied for cash on delivery")
	ErrCardRequired      = Validation("card_required", "card_number", "Please input credit card No.")
	ErrInvalidCardNumber = Validation("invalid_card_number", "card_number", "Card number must be exactly 16 digits.")
	ErrBlockedCardPrefix = Validation("blocked_card_prefix", "card_number", "Card number cannot start with 0000")
	ErrOrderCancelled    = Validation("order_cancelled", "order_number", "cancelled orders cannot be paid")
	ErrAlreadyPaid       = &Error{Kind: KindConflict, Code: "order_already_paid", Field: "order_number", Message: "order is already paid"}
)

// InsufficientStock reports a line whose requested quantity exceeds the
// available stock of the named product.
func InsufficientStock(field, product string, available, requested int) *Error {
	return ErrInsufficientStock.
		WithField(field).
		WithMessagef("Insufficient stock for %s. Available: %d, Requested: %d", product, available, requested).
		WithDetail("product", product).
		WithDetail("available", available).
		WithDetail("requested", requested)
}
