package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ItemType classifies an item and decides its specification fields.
type ItemType string

// Item types.
const (
	ItemTypeLaptop     ItemType = "laptop"
	ItemTypeSmartphone ItemType = "smartphone"
)

// DateLayout is the calendar date format used in forms, storage and folder names.
const DateLayout = "2006-01-02"

// Sub-folders of an item folder.
const (
	FolderProductImages = "Product images"
	FolderAgreement     = "Agreement"
)

// ParseItemType returns the ItemType for s or an error for unknown values.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTypeLaptop, ItemTypeSmartphone:
		return ItemType(s), nil
	default:
		return "", fmt.Errorf("unknown item type %q", s)
	}
}

// Party is the seller or buyer of an item.
type Party struct {
	Name     string `json:"name"`
	NIC      string `json:"nic,omitempty"`
	Contact  string `json:"contact"`
	Location string `json:"location"`
}

// Expenses are the itemized costs of buying or selling an item.
type Expenses struct {
	Transport decimal.Decimal `json:"transport"`
	Food      decimal.Decimal `json:"food"`
	Fuel      decimal.Decimal `json:"fuel"`
	Other     decimal.Decimal `json:"other"`
}

// Total sums all expense categories.
func (e Expenses) Total() decimal.Decimal {
	return e.Transport.Add(e.Food).Add(e.Fuel).Add(e.Other)
}

// Sale holds the sale-side fields of a sold item.
type Sale struct {
	Date        time.Time       `json:"date"`
	Price       decimal.Decimal `json:"price"`
	Buyer       Party           `json:"buyer"`
	Expenses    Expenses        `json:"expenses"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	NetProfit   decimal.Decimal `json:"net_profit"`
}

// Item is one tracked purchase, and optionally its sale, of a laptop or smartphone.
type Item struct {
	ID             int64           `json:"id"`
	Type           ItemType        `json:"item_type"`
	Name           string          `json:"name"`
	PurchaseDate   time.Time       `json:"purchase_date"`
	Seller         Party           `json:"seller"`
	Price          decimal.Decimal `json:"item_price"`
	Expenses       Expenses        `json:"expenses"`
	Specifications SpecMap         `json:"specifications"`
	Images         []string        `json:"images"`
	AgreementImage string          `json:"agreement_image"`
	CreatedAt      time.Time       `json:"created_at"`
	Sale           *Sale           `json:"sale,omitempty"`
}

// Sold reports whether the item has a selling date and price.
func (i *Item) Sold() bool {
	return i.Sale != nil
}

// Folder returns the logical storage folder of the item, {name}_{purchase date}.
func (i *Item) Folder() string {
	return ItemFolder(i.Name, i.PurchaseDate)
}

// ItemFolder builds the logical folder name for an item name and purchase date.
func ItemFolder(name string, purchaseDate time.Time) string {
	return name + "_" + purchaseDate.Format(DateLayout)
}

// Sell records a sale on the item and recomputes both profit figures
// from the item's current price and purchase expenses.
func (i *Item) Sell(sale Sale) {
	sale.GrossProfit, sale.NetProfit = ComputeProfit(i.Price, sale.Price, i.Expenses, sale.Expenses)
	i.Sale = &sale
}
