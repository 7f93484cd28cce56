// Package auth models the principal handed to the shop by the identity proxy
// and the role capabilities checked by every handler.
package auth

import (
	"context"
	"strings"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return r, nil
	default:
		return "", domain.ErrUnauthorized.WithMessagef("unknown role %q", s)
	}
}

type Capability int

const (
	CapPlaceOrder Capability = iota
	CapPayOrder
	CapManageProducts
	CapManageAnyProduct
	CapManageDiscounts
	CapViewSellerStats
)

var grants = map[Role][]Capability{
	RoleCustomer: {CapPlaceOrder, CapPayOrder},
	RoleSeller:   {CapPlaceOrder, CapPayOrder, CapManageProducts, CapManageDiscounts, CapViewSellerStats},
	RoleAdmin:    {CapPlaceOrder, CapPayOrder, CapManageAnyProduct},
}

// Can reports whether role holds capability c.
func Can(role Role, c Capability) bool {
	for _, g := range grants[role] {
		if g == c {
			return true
		}
	}
	return false
}

type Principal struct {
	UserID int64
	Role   Role
}

func (p Principal) Can(c Capability) bool {
	return Can(p.Role, c)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
