package discounts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

// SalesSummary aggregates sold lines. ItemsSold counts units; OrderLines
// counts order items.
type SalesSummary struct {
	ItemsSold       int    `json:"total_items_sold"`
	OrderLines      int    `json:"total_order_lines"`
	OriginalRevenue string `json:"total_original_revenue"`
	DiscountGiven   string `json:"total_discount_amount"`
	Profit          string `json:"total_profit"`
}

type DayStats struct {
	DiscountDayID      int64  `json:"discount_day_id"`
	Date               string `json:"date"`
	DiscountPercentage string `json:"discount_percentage"`
	SalesSummary
}

type DiscountSummary struct {
	DiscountDays  int    `json:"total_discount_days"`
	ItemsSold     int    `json:"total_items_sold_during_discount_days"`
	Profit        string `json:"total_profit_from_discount_days"`
	DiscountGiven string `json:"total_discount_given"`
}

type DiscountStats struct {
	StatsType string          `json:"stats_type"`
	Days      []DayStats      `json:"discount_day_stats"`
	Summary   DiscountSummary `json:"summary"`
}

type ProductDaySales struct {
	Quantity           int    `json:"quantity"`
	Revenue            string `json:"revenue"`
	DiscountPercentage string `json:"discount_percentage"`
}

type ProductSales struct {
	ProductID         int64                      `json:"product_id"`
	ProductName       string                     `json:"product_name"`
	ProductPrice      string                     `json:"product_price"`
	DiscountDays      map[string]ProductDaySales `json:"discount_days"`
	TotalQuantitySold int                        `json:"total_quantity_sold"`
	TotalRevenue      string                     `json:"total_revenue"`
}

type ProductStats struct {
	Products []ProductSales `json:"products_sold_during_discount_days"`
	Total    int            `json:"total_products_sold_during_discount_days"`
}

type NonDiscountStats struct {
	StatsType string       `json:"stats_type"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	Stats     SalesSummary `json:"stats"`
}

type accumulator struct {
	items  int
	lines  int
	totals pricing.Totals
}

func (a *accumulator) add(l SoldLine) {
	sub := pricing.Line(l.UnitPrice, l.Quantity, l.DiscountPercentage, l.IsDiscountDay)
	a.items += l.Quantity
	a.lines++
	a.totals = a.totals.Add(sub)
}

func (a *accumulator) merge(o *accumulator) {
	a.items += o.items
	a.lines += o.lines
	a.totals = a.totals.Merge(o.totals)
}

func (a *accumulator) summary() SalesSummary {
	t := a.totals
	return SalesSummary{
		ItemsSold:       a.items,
		OrderLines:      a.lines,
		OriginalRevenue: pricing.Format(t.Original),
		DiscountGiven:   pricing.Format(t.Discount),
		Profit:          pricing.Format(t.Final),
	}
}

func dayKey(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func discounted(v bool) *bool { return &v }

// DayStats reports sales of the seller's discount-tagged items on one
// discount day.
func (r *Registry) DayStats(ctx context.Context, sellerID int64, date time.Time) (*DayStats, error) {
	day, err := r.store.FindBySellerDate(ctx, sellerID, date)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, domain.ErrDiscountDayNotFound.WithField("date")
	}

	lines, err := r.store.SoldLines(ctx, SalesFilter{SellerID: sellerID, From: &day.Date, To: &day.Date, Discounted: discounted(true)})
	if err != nil {
		return nil, err
	}

	var acc accumulator
	for _, l := range lines {
		acc.add(l)
	}

	return &DayStats{
		DiscountDayID:      day.ID,
		Date:               dayKey(day.Date),
		DiscountPercentage: pricing.Format(day.Percentage),
		SalesSummary:       acc.summary(),
	}, nil
}

// AllDayStats reports per-day sales for every discount day of the seller,
// newest first, with a summary across days.
func (r *Registry) AllDayStats(ctx context.Context, sellerID int64) (*DiscountStats, error) {
	days, err := r.store.List(ctx, &sellerID)
	if err != nil {
		return nil, err
	}

	lines, err := r.store.SoldLines(ctx, SalesFilter{SellerID: sellerID, Discounted: discounted(true)})
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*accumulator, len(days))
	for _, l := range lines {
		key := dayKey(l.BusinessDate)
		acc, ok := byDay[key]
		if !ok {
			acc = &accumulator{}
			byDay[key] = acc
		}
		acc.add(l)
	}

	stats := &DiscountStats{StatsType: "discount_days", Days: make([]DayStats, 0, len(days))}
	var total accumulator
	for _, day := range days {
		acc := byDay[dayKey(day.Date)]
		if acc == nil {
			acc = &accumulator{}
		}
		stats.Days = append(stats.Days, DayStats{
			DiscountDayID:      day.ID,
			Date:               dayKey(day.Date),
			DiscountPercentage: pricing.Format(day.Percentage),
			SalesSummary:       acc.summary(),
		})
		total.merge(acc)
	}

	sum := total.summary()
	stats.Summary = DiscountSummary{
		DiscountDays:  len(days),
		ItemsSold:     sum.ItemsSold,
		Profit:        sum.Profit,
		DiscountGiven: sum.DiscountGiven,
	}
	return stats, nil
}

// ProductStats groups the seller's discount-tagged sales by product and day.
// A non-nil date restricts the report to that discount day.
func (r *Registry) ProductStats(ctx context.Context, sellerID int64, date *time.Time) (*ProductStats, error) {
	f := SalesFilter{SellerID: sellerID, Discounted: discounted(true)}
	if date != nil {
		day, err := r.store.FindBySellerDate(ctx, sellerID, *date)
		if err != nil {
			return nil, err
		}
		if day == nil {
			return nil, domain.ErrDiscountDayNotFound.WithField("date")
		}
		f.From, f.To = &day.Date, &day.Date
	}

	lines, err := r.store.SoldLines(ctx, f)
	if err != nil {
		return nil, err
	}

	type dayAcc struct {
		quantity int
		revenue  decimal.Decimal
		pct      decimal.Decimal
	}
	type productAcc struct {
		sales   ProductSales
		revenue decimal.Decimal
		days    map[string]*dayAcc
	}

	products := map[int64]*productAcc{}
	var order []int64
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			p = &productAcc{
				sales: ProductSales{
					ProductID:    l.ProductID,
					ProductName:  l.ProductName,
					ProductPrice: pricing.Format(l.UnitPrice),
				},
				days: map[string]*dayAcc{},
			}
			products[l.ProductID] = p
			order = append(order, l.ProductID)
		}

		final := pricing.Line(l.UnitPrice, l.Quantity, l.DiscountPercentage, l.IsDiscountDay).Final
		key := dayKey(l.BusinessDate)
		d, ok := p.days[key]
		if !ok {
			d = &dayAcc{}
			p.days[key] = d
		}
		d.quantity += l.Quantity
		d.revenue = d.revenue.Add(final)
		d.pct = l.DiscountPercentage

		p.sales.TotalQuantitySold += l.Quantity
		p.revenue = p.revenue.Add(final)
	}

	stats := &ProductStats{Products: make([]ProductSales, 0, len(order))}
	for _, id := range order {
		p := products[id]
		p.sales.TotalRevenue = pricing.Format(p.revenue)
		p.sales.DiscountDays = make(map[string]ProductDaySales, len(p.days))
		for key, d := range p.days {
			p.sales.DiscountDays[key] = ProductDaySales{
				Quantity:           d.quantity,
				Revenue:            pricing.Format(d.revenue),
				DiscountPercentage: pricing.Format(d.pct),
			}
		}
		stats.Products = append(stats.Products, p.sales)
	}
	stats.Total = len(stats.Products)
	return stats, nil
}

// NonDiscountStats reports the seller's untagged sales between from and to
// inclusive. Missing bounds default to the current month in the business
// time zone.
func (r *Registry) NonDiscountStats(ctx context.Context, sellerID int64, from, to *time.Time) (*NonDiscountStats, error) {
	today := r.clock.Today()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	if from == nil {
		from = &monthStart
	}
	if to == nil {
		monthEnd := monthStart.AddDate(0, 1, -1)
		to = &monthEnd
	}
	if to.Before(*from) {
		return nil, domain.ErrInvalidField.WithField("end_date").WithMessagef("end_date must not be before start_date")
	}

	lines, err := r.store.SoldLines(ctx, SalesFilter{SellerID: sellerID, From: from, To: to, Discounted: discounted(false)})
	if err != nil {
		return nil, err
	}

	var acc accumulator
	for _, l := range lines {
		acc.add(l)
	}

	return &NonDiscountStats{
		StatsType: "non_discount_days",
		StartDate: dayKey(*from),
		EndDate:   dayKey(*to),
		Stats:     acc.summary(),
	}, nil
}
