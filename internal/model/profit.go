package model

import "github.com/shopspring/decimal"

// ComputeProfit returns gross profit (selling price minus item price) and
// net profit (gross minus purchase and sale expenses).
func ComputeProfit(itemPrice, sellingPrice decimal.Decimal, purchase, sale Expenses) (gross, net decimal.Decimal) {
	gross = sellingPrice.Sub(itemPrice)
	net = gross.Sub(purchase.Total().Add(sale.Total()))
	return gross, net
}

// Summary aggregates counts and profits over a set of items.
type Summary struct {
	Items       int             `json:"items"`
	Sold        int             `json:"sold"`
	Invested    decimal.Decimal `json:"invested"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	NetProfit   decimal.Decimal `json:"net_profit"`
}

// Summarize totals the given items. Invested covers item prices and purchase
// expenses of every item, profits only cover sold items.
func Summarize(items []Item) Summary {
	var s Summary
	for _, it := range items {
		s.Items++
		s.Invested = s.Invested.Add(it.Price).Add(it.Expenses.Total())
		if it.Sale == nil {
			continue
		}
		s.Sold++
		s.GrossProfit = s.GrossProfit.Add(it.Sale.GrossProfit)
		s.NetProfit = s.NetProfit.Add(it.Sale.NetProfit)
	}
	return s
}
