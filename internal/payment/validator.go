// Package payment accepts buyer payments against the current total of an
// order.
package payment

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

var cardPattern = regexp.MustCompile(`^\d{16}$`)

// NormalizeCard removes every whitespace character from a card number.
func NormalizeCard(card string) string {
	return strings.Join(strings.Fields(card), "")
}

// Validate checks a payment attempt against order. The total is recomputed
// from the items on every call. card must already be normalized; an empty
// card means none was supplied.
func Validate(order *domain.Order, amount decimal.Decimal, card string) error {
	if order.IsPaid {
		return domain.ErrAlreadyPaid
	}
	if order.Status == domain.OrderStatusCancelled {
		return domain.ErrOrderCancelled
	}

	total := order.Totals().Final
	if amount.LessThan(total) {
		return domain.ErrAmountTooLow.
			WithMessagef("amount %s is lower than the order total %s", pricing.Format(amount), pricing.Format(total)).
			WithDetail("total_amount", pricing.Format(total))
	}

	if !order.Payment.RequiresCard() {
		if card != "" {
			return domain.ErrCardNotAllowed
		}
		return nil
	}

	switch {
	case card == "":
		return domain.ErrCardRequired
	case !cardPattern.MatchString(card):
		return domain.ErrInvalidCardNumber
	case strings.HasPrefix(card, "0000"):
		return domain.ErrBlockedCardPrefix
	}
	return nil
}
