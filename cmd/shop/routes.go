package main

import (
	"net/http"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/catalog"
	"github.com/joao-fontenele/storefront/internal/discounts"
	"github.com/joao-fontenele/storefront/internal/orders"
	"github.com/joao-fontenele/storefront/internal/payment"
	"github.com/joao-fontenele/storefront/internal/telemetry"
)

type routes struct {
	catalog   *catalog.Handler
	discounts *discounts.Handler
	orders    *orders.Handler
	payment   *payment.Handler
}

func registerRoutes(mux *http.ServeMux, guard *auth.Guard, r routes) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}

	handle("GET /products", r.catalog.HandleList)
	handle("POST /products", guard.Require(auth.CapManageProducts, r.catalog.HandleCreate))
	handle("GET /products/{id}", r.catalog.HandleGet)
	handle("PUT /products/{id}", guard.Authenticated(r.catalog.HandleUpdate))
	handle("PATCH /products/{id}", guard.Authenticated(r.catalog.HandleUpdate))
	handle("DELETE /products/{id}", guard.Authenticated(r.catalog.HandleDelete))
	handle("POST /products/{id}/restore", guard.Authenticated(r.catalog.HandleRestore))
	handle("PATCH /products/{id}/inventory", guard.Require(auth.CapManageProducts, r.catalog.HandleAdjustStock))
	handle("GET /seller/products", guard.Require(auth.CapManageProducts, r.catalog.HandleListMine))

	handle("GET /discount-days", r.discounts.HandleList)
	handle("POST /discount-days", guard.Require(auth.CapManageDiscounts, r.discounts.HandleCreate))
	handle("GET /discount-days/{id}", guard.Require(auth.CapManageDiscounts, r.discounts.HandleGet))
	handle("PATCH /discount-days/{id}", guard.Require(auth.CapManageDiscounts, r.discounts.HandleUpdate))
	handle("DELETE /discount-days/{id}", guard.Require(auth.CapManageDiscounts, r.discounts.HandleDelete))
	handle("GET /seller/stats", guard.Require(auth.CapViewSellerStats, r.discounts.HandleStats))

	handle("POST /orders", guard.Require(auth.CapPlaceOrder, r.orders.HandleCreate))
	handle("GET /orders", guard.Authenticated(r.orders.HandleList))
	handle("GET /orders/{number}", guard.Authenticated(r.orders.HandleGet))
	handle("PUT /orders/{number}", guard.Authenticated(r.orders.HandleUpdate))
	handle("PATCH /orders/{number}", guard.Authenticated(r.orders.HandleUpdate))
	handle("DELETE /orders/{number}", guard.Authenticated(r.orders.HandleDelete))
	handle("GET /seller/orders", guard.Require(auth.CapViewSellerStats, r.orders.HandleListSeller))

	handle("POST /payment", guard.Require(auth.CapPayOrder, r.payment.HandlePay))
}
