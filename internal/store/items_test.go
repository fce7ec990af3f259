package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gsetrade/gsebook/internal/db"
	"github.com/gsetrade/gsebook/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newLaptop(name, purchased string) *model.Item {
	return &model.Item{
		Type:         model.ItemTypeLaptop,
		Name:         name,
		PurchaseDate: date(purchased),
		Seller:       model.Party{Name: "Kamal", NIC: "901234567V", Contact: "0771234567", Location: "Kandy"},
		Price:        decimal.RequireFromString("1000"),
		Expenses:     model.Expenses{Transport: decimal.RequireFromString("50")},
		Specifications: model.LaptopSpecs{
			CPU: "i7", RAMCapacity: "16GB", StorageType: "SSD", StorageSize: "512GB", DisplayResolution: "1920x1080",
		}.Map(),
		AgreementImage: "/uploads/agreement.jpg",
	}
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	in := newLaptop("ThinkPad", "2024-01-10")
	item, err := CreateItem(ctx, database, in)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected id to be assigned")
	}
	if item.Sold() {
		t.Error("new item should not be sold")
	}
	if !item.PurchaseDate.Equal(in.PurchaseDate) {
		t.Errorf("purchase date = %v, want %v", item.PurchaseDate, in.PurchaseDate)
	}
	if !item.Price.Equal(in.Price) || !item.Expenses.Transport.Equal(in.Expenses.Transport) {
		t.Errorf("money mismatch: %s / %s", item.Price, item.Expenses.Transport)
	}
	if item.Seller != in.Seller {
		t.Errorf("seller = %+v, want %+v", item.Seller, in.Seller)
	}
	if len(item.Images) != 0 || item.Images == nil {
		t.Errorf("expected empty non-nil images, got %#v", item.Images)
	}
	if item.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	missing, err := GetItem(ctx, database, item.ID+100)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestSpecificationsRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	specs := []model.SpecMap{
		model.LaptopSpecs{CPU: "i5"}.Map(),
		model.SmartphoneSpecs{Model: "Pixel", Capacity: "128GB"}.Map(),
		{
			"anything": "goes",
			"nested":   map[string]any{"list": []any{"a", "b"}, "n": float64(3)},
			"flag":     true,
		},
	}

	for _, spec := range specs {
		in := newLaptop("Any", "2024-03-01")
		in.Specifications = spec
		in.Images = []string{"/uploads/b.jpg", "/uploads/a.jpg"}

		created, err := CreateItem(ctx, database, in)
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		if !reflect.DeepEqual(created.Specifications, spec) {
			t.Errorf("specifications round trip:\n got %#v\nwant %#v", created.Specifications, spec)
		}
		if !reflect.DeepEqual(created.Images, in.Images) {
			t.Errorf("images round trip: got %v, want %v", created.Images, in.Images)
		}
	}
}

func TestListItemsOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, newLaptop("Old", "2023-05-01"))
	CreateItem(ctx, database, newLaptop("New", "2024-06-01"))
	CreateItem(ctx, database, newLaptop("Mid", "2024-01-15"))

	items, err := ListItems(ctx, database)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	want := []string{"New", "Mid", "Old"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}
}

func TestUpdateItemWithSale(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, newLaptop("ThinkPad", "2024-01-10"))
	item.Sell(model.Sale{
		Date:     date("2024-02-01"),
		Price:    decimal.RequireFromString("1300"),
		Buyer:    model.Party{Name: "Ruwan", Contact: "0711111111", Location: "Galle"},
		Expenses: model.Expenses{Transport: decimal.RequireFromString("20")},
	})

	ok, err := UpdateItem(ctx, database, item)
	if err != nil || !ok {
		t.Fatalf("UpdateItem: ok=%v err=%v", ok, err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if !got.Sold() {
		t.Fatal("expected item to be sold")
	}
	if !got.Sale.Date.Equal(date("2024-02-01")) {
		t.Errorf("selling date = %v", got.Sale.Date)
	}
	if !got.Sale.GrossProfit.Equal(decimal.RequireFromString("300")) {
		t.Errorf("gross = %s, want 300", got.Sale.GrossProfit)
	}
	if !got.Sale.NetProfit.Equal(decimal.RequireFromString("230")) {
		t.Errorf("net = %s, want 230", got.Sale.NetProfit)
	}
	if got.Sale.Buyer.NIC != "" {
		t.Errorf("expected empty buyer nic, got %q", got.Sale.Buyer.NIC)
	}

	summary, err := ItemSummary(ctx, database)
	if err != nil {
		t.Fatalf("ItemSummary: %v", err)
	}
	if summary.Sold != 1 || !summary.NetProfit.Equal(decimal.RequireFromString("230")) {
		t.Errorf("summary = %+v", summary)
	}
}

func TestUpdateMissingItem(t *testing.T) {
	database := db.NewTestDB(t)

	item := newLaptop("Ghost", "2024-01-01")
	item.ID = 42
	ok, err := UpdateItem(context.Background(), database, item)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if ok {
		t.Error("expected no row to be updated")
	}
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, newLaptop("Delete Me", "2024-01-01"))

	ok, err := DeleteItem(ctx, database, item.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteItem: ok=%v err=%v", ok, err)
	}
	got, _ := GetItem(ctx, database, item.ID)
	if got != nil {
		t.Error("expected item to be gone")
	}

	ok, _ = DeleteItem(ctx, database, item.ID)
	if ok {
		t.Error("second delete should report no row")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		if _, err := CreateItem(ctx, tx, newLaptop("Rolled back", "2024-01-01")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	items, _ := ListItems(ctx, database)
	if len(items) != 0 {
		t.Errorf("expected rollback to discard the row, got %d items", len(items))
	}

	err = WithTx(ctx, database, func(tx *sql.Tx) error {
		_, err := CreateItem(ctx, tx, newLaptop("Committed", "2024-01-01"))
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	items, _ = ListItems(ctx, database)
	if len(items) != 1 {
		t.Errorf("expected 1 committed item, got %d", len(items))
	}
}
