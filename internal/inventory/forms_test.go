package inventory

import (
	"errors"
	"net/url"
	"testing"

	"github.com/gsetrade/gsebook/internal/model"
)

func TestParsePurchaseFormExpenseNames(t *testing.T) {
	form := laptopForm()
	form.Del("expenses[transport]")
	form.Set("transport_cost", "1,250.50")
	form.Set("expenses[food]", "10")

	in, err := ParsePurchaseForm(form)
	if err != nil {
		t.Fatalf("ParsePurchaseForm: %v", err)
	}
	if !in.Expenses.Transport.Equal(dec("1250.50")) {
		t.Errorf("transport = %s", in.Expenses.Transport)
	}
	if !in.Expenses.Food.Equal(dec("10")) {
		t.Errorf("food = %s", in.Expenses.Food)
	}
	if !in.Expenses.Fuel.IsZero() || !in.Expenses.Other.IsZero() {
		t.Errorf("missing expenses should be zero, got %+v", in.Expenses)
	}
}

func TestParsePurchaseFormErrors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(url.Values)
		field string
	}{
		{"missing name", func(f url.Values) { f.Del("name") }, "name"},
		{"bad date", func(f url.Values) { f.Set("purchase_date", "10/01/2024") }, "purchase_date"},
		{"negative price", func(f url.Values) { f.Set("item_price", "-5") }, "item_price"},
		{"text price", func(f url.Values) { f.Set("item_price", "cheap") }, "item_price"},
		{"bad expense", func(f url.Values) { f.Set("expenses[fuel]", "x") }, "fuel_cost"},
		{"exponent price", func(f url.Values) { f.Set("item_price", "1e80000000") }, "item_price"},
		{"exponent expense", func(f url.Values) { f.Set("transport_cost", "5E3") }, "transport_cost"},
		{"sub-cent price", func(f url.Values) { f.Set("item_price", "10.005") }, "item_price"},
		{"huge price", func(f url.Values) { f.Set("item_price", "1234567890123") }, "item_price"},
		{"missing cpu", func(f url.Values) { f.Del("specs[cpu]") }, "specs[cpu]"},
		{"unknown type", func(f url.Values) { f.Set("item_type", "tablet") }, "item_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := laptopForm()
			tt.edit(form)

			_, err := ParsePurchaseForm(form)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, verr.Fields)
			}
			if !IsClientError(err) {
				t.Error("validation errors are client errors")
			}
		})
	}
}

func TestParsePurchaseFormLaptopSpecs(t *testing.T) {
	form := laptopForm()
	form.Set("specs[display_resolution]", model.CustomResolution)
	form.Set("specs[custom_resolution]", "2880x1800")
	form["specs[features][]"] = []string{"Backlit keyboard", "Fingerprint", "Backlit keyboard", " "}
	form.Set("specs[model]", "ignored")

	in, err := ParsePurchaseForm(form)
	if err != nil {
		t.Fatalf("ParsePurchaseForm: %v", err)
	}

	m := in.Specs.Map()
	if m["display_resolution"] != "2880x1800" {
		t.Errorf("display_resolution = %v", m["display_resolution"])
	}
	features, _ := m["features"].([]any)
	if len(features) != 2 {
		t.Errorf("features = %v, want 2 distinct entries", m["features"])
	}
	if _, ok := m["model"]; ok {
		t.Error("smartphone fields must not be stored on a laptop")
	}
}

func TestParsePurchaseFormSmartphone(t *testing.T) {
	form := url.Values{
		"name":            {"Galaxy"},
		"item_type":       {"smartphone"},
		"seller_name":     {"Nimal"},
		"seller_contact":  {"0770000000"},
		"seller_location": {"Colombo"},
		"purchase_date":   {"2024-03-01"},
		"item_price":      {"400"},
		"specs[model]":    {"S23"},
		"specs[capacity]": {"256GB"},
		"specs[cpu]":      {"ignored"},
	}

	in, err := ParsePurchaseForm(form)
	if err != nil {
		t.Fatalf("ParsePurchaseForm: %v", err)
	}
	if in.Type != model.ItemTypeSmartphone {
		t.Errorf("type = %s", in.Type)
	}
	m := in.Specs.Map()
	if len(m) != 2 || m["model"] != "S23" || m["capacity"] != "256GB" {
		t.Errorf("specs = %v", m)
	}
}

func TestParseSaleFormPrefersSaleNames(t *testing.T) {
	form := saleValues()
	form.Set("transport_cost", "99")

	in, err := ParseSaleForm(form)
	if err != nil {
		t.Fatalf("ParseSaleForm: %v", err)
	}
	if !in.Expenses.Transport.Equal(dec("20")) {
		t.Errorf("sale transport = %s, want 20", in.Expenses.Transport)
	}
	if in.PurchaseExpenses.Transport == nil || !in.PurchaseExpenses.Transport.Equal(dec("99")) {
		t.Errorf("purchase transport = %v, want 99", in.PurchaseExpenses.Transport)
	}
	if in.PurchaseExpenses.Food != nil {
		t.Error("absent purchase expenses must stay nil")
	}
}

func TestParseEditSaleFormIgnoresPurchaseNames(t *testing.T) {
	form := saleValues()
	form.Del("sale_transport_cost")
	form.Set("transport_cost", "99")

	in, err := ParseEditSaleForm(form)
	if err != nil {
		t.Fatalf("ParseEditSaleForm: %v", err)
	}
	if !in.Expenses.Transport.IsZero() {
		t.Errorf("sale transport = %s, want 0", in.Expenses.Transport)
	}
	if in.PurchaseExpenses.Transport != nil {
		t.Error("edit form must not carry purchase expenses")
	}
}

func TestParseSaleFormErrors(t *testing.T) {
	form := saleValues()
	form.Del("buyer_name")
	form.Set("selling_price", "-1")

	_, err := ParseSaleForm(form)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"buyer_name", "selling_price"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected error on %s, got %v", field, verr.Fields)
		}
	}
}

func TestParseSaleFormRejectsExponents(t *testing.T) {
	form := saleValues()
	form.Set("selling_price", "1e80000000")
	form.Set("sale_food_cost", "2E2")

	_, err := ParseSaleForm(form)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"selling_price", "sale_food_cost"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected error on %s, got %v", field, verr.Fields)
		}
	}
}

func TestParseExpensePolicy(t *testing.T) {
	for in, want := range map[string]ExpensePolicy{"": PolicyKeep, "keep": PolicyKeep, "overwrite": PolicyOverwrite} {
		got, err := ParseExpensePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseExpensePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseExpensePolicy("merge"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
