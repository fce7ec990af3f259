package model

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseItemType(t *testing.T) {
	tests := []struct {
		in      string
		want    ItemType
		wantErr bool
	}{
		{"laptop", ItemTypeLaptop, false},
		{"smartphone", ItemTypeSmartphone, false},
		{"tablet", "", true},
		{"Laptop", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseItemType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseItemType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseItemType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComputeProfit(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		selling   string
		purchase  Expenses
		sale      Expenses
		wantGross string
		wantNet   string
	}{
		{
			name:      "thinkpad",
			price:     "1000",
			selling:   "1300",
			purchase:  Expenses{Transport: dec("50")},
			sale:      Expenses{Transport: dec("20")},
			wantGross: "300",
			wantNet:   "230",
		},
		{
			name:      "loss",
			price:     "500",
			selling:   "450",
			purchase:  Expenses{Food: dec("10"), Fuel: dec("5")},
			wantGross: "-50",
			wantNet:   "-65",
		},
		{
			name:      "fractions stay exact",
			price:     "0.1",
			selling:   "0.3",
			purchase:  Expenses{Other: dec("0.1")},
			sale:      Expenses{Other: dec("0.05")},
			wantGross: "0.2",
			wantNet:   "0.05",
		},
		{
			name:      "all zero",
			price:     "0",
			selling:   "0",
			wantGross: "0",
			wantNet:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross, net := ComputeProfit(dec(tt.price), dec(tt.selling), tt.purchase, tt.sale)
			if !gross.Equal(dec(tt.wantGross)) {
				t.Errorf("gross = %s, want %s", gross, tt.wantGross)
			}
			if !net.Equal(dec(tt.wantNet)) {
				t.Errorf("net = %s, want %s", net, tt.wantNet)
			}
		})
	}
}

func TestItemSell(t *testing.T) {
	item := &Item{
		Name:         "ThinkPad",
		PurchaseDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Price:        dec("1000"),
		Expenses:     Expenses{Transport: dec("50")},
	}
	if item.Sold() {
		t.Fatal("new item should not be sold")
	}

	item.Sell(Sale{
		Date:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Price:    dec("1300"),
		Expenses: Expenses{Transport: dec("20")},
	})

	if !item.Sold() {
		t.Fatal("expected item to be sold")
	}
	if !item.Sale.GrossProfit.Equal(dec("300")) {
		t.Errorf("gross = %s, want 300", item.Sale.GrossProfit)
	}
	if !item.Sale.NetProfit.Equal(dec("230")) {
		t.Errorf("net = %s, want 230", item.Sale.NetProfit)
	}
	if got := item.Folder(); got != "ThinkPad_2024-01-10" {
		t.Errorf("Folder() = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	sold := Item{Price: dec("1000"), Expenses: Expenses{Transport: dec("50")}}
	sold.Sell(Sale{Price: dec("1300"), Expenses: Expenses{Transport: dec("20")}})
	unsold := Item{Price: dec("200")}

	s := Summarize([]Item{sold, unsold})
	if s.Items != 2 || s.Sold != 1 {
		t.Errorf("counts = %d/%d, want 2/1", s.Items, s.Sold)
	}
	if !s.Invested.Equal(dec("1250")) {
		t.Errorf("invested = %s, want 1250", s.Invested)
	}
	if !s.NetProfit.Equal(dec("230")) {
		t.Errorf("net = %s, want 230", s.NetProfit)
	}
}

func TestLaptopSpecsMap(t *testing.T) {
	m := LaptopSpecs{CPU: "i7", DisplayResolution: "1920x1080"}.Map()

	features, ok := m["features"].([]any)
	if !ok {
		t.Fatalf("features should be a list, got %T", m["features"])
	}
	if len(features) != 0 {
		t.Errorf("expected empty features, got %v", features)
	}
	if m["cpu"] != "i7" {
		t.Errorf("cpu = %v", m["cpu"])
	}
	if _, ok := m["remarks"]; !ok {
		t.Error("laptop remarks should always be present")
	}
}

func TestSmartphoneSpecsOmitRemarks(t *testing.T) {
	m := SmartphoneSpecs{Model: "Pixel 8", Capacity: "128GB"}.Map()
	if _, ok := m["remarks"]; ok {
		t.Error("empty smartphone remarks should be absent")
	}
	if len(m) != 2 {
		t.Errorf("expected 2 keys, got %v", m)
	}
}

func TestParseSpecsRoundTrip(t *testing.T) {
	in := LaptopSpecs{
		CPU:               "Ryzen 7",
		RAMCapacity:       "16GB",
		StorageType:       "SSD",
		StorageSize:       "512GB",
		DisplayResolution: "2560x1600",
		Features:          []string{"backlit keyboard", "fingerprint"},
	}

	var stored SpecMap
	v, err := in.Map().Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if err := stored.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	out, err := ParseSpecs(ItemTypeLaptop, stored)
	if err != nil {
		t.Fatalf("ParseSpecs: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
	if !reflect.DeepEqual(stored, in.Map()) {
		t.Errorf("stored map mismatch:\n got %v\nwant %v", stored, in.Map())
	}
}

func TestParseSpecsDropsForeignKeys(t *testing.T) {
	m := LaptopSpecs{CPU: "i5", Features: []string{"touch"}}.Map()
	m["model"] = "Galaxy"

	s, err := ParseSpecs(ItemTypeSmartphone, m)
	if err != nil {
		t.Fatalf("ParseSpecs: %v", err)
	}
	phone := s.(SmartphoneSpecs)
	if phone.Model != "Galaxy" || phone.Capacity != "" {
		t.Errorf("unexpected smartphone specs %+v", phone)
	}
	if _, ok := phone.Map()["cpu"]; ok {
		t.Error("laptop keys must not survive a type change")
	}
}

func TestSpecRows(t *testing.T) {
	m := SpecMap{
		"remarks":        "",
		"cpu":            "i5",
		"features":       []any{"Backlit keyboard", "Touch"},
		"ram_capacity":   "8GB",
		"battery_health": "91%",
		"model":          "X1",
	}

	got := SpecRows(m)
	want := []SpecRow{
		{"Model", "X1"},
		{"CPU", "i5"},
		{"RAM", "8GB"},
		{"Features", "Backlit keyboard, Touch"},
		{"Battery Health", "91%"},
	}
	if len(got) != len(want) {
		t.Fatalf("SpecRows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %v, want %v", i, got[i], want[i])
		}
	}
}
