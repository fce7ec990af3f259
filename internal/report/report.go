// Package report exports the inventory as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/gsetrade/gsebook/internal/model"
)

const (
	ItemsSheet   = "Items"
	SummarySheet = "Summary"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var itemHeaders = []string{
	"ID", "Type", "Name", "Purchase date", "Seller", "Seller contact", "Price",
	"Purchase expenses", "Selling date", "Selling price", "Buyer", "Buyer contact",
	"Sale expenses", "Gross profit", "Net profit", "Specifications", "Images", "Agreement",
}

// WriteItems writes one row per item plus a summary sheet to w.
func WriteItems(w io.Writer, items []model.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ItemsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := setRow(f, ItemsSheet, 1, toAny(itemHeaders)); err != nil {
		return err
	}
	for i, item := range items {
		if err := setRow(f, ItemsSheet, i+2, itemRow(item)); err != nil {
			return err
		}
	}
	if err := f.SetPanes(ItemsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	s := model.Summarize(items)
	rows := [][]any{
		{"Items", s.Items},
		{"Sold", s.Sold},
		{"Invested", money(s.Invested)},
		{"Gross profit", money(s.GrossProfit)},
		{"Net profit", money(s.NetProfit)},
	}
	for i, row := range rows {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func itemRow(item model.Item) []any {
	row := []any{
		item.ID,
		string(item.Type),
		item.Name,
		item.PurchaseDate.Format(model.DateLayout),
		item.Seller.Name,
		item.Seller.Contact,
		money(item.Price),
		money(item.Expenses.Total()),
	}

	if sale := item.Sale; sale != nil {
		row = append(row,
			sale.Date.Format(model.DateLayout),
			money(sale.Price),
			sale.Buyer.Name,
			sale.Buyer.Contact,
			money(sale.Expenses.Total()),
			money(sale.GrossProfit),
			money(sale.NetProfit),
		)
	} else {
		row = append(row, "", "", "", "", "", "", "")
	}

	return append(row,
		specText(item.Specifications),
		strings.Join(item.Images, "\n"),
		item.AgreementImage,
	)
}

// money returns a decimal as a float for spreadsheet arithmetic.
func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func specText(m model.SpecMap) string {
	rows := model.SpecRows(m)
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = r.Label + ": " + r.Value
	}
	return strings.Join(parts, "\n")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
