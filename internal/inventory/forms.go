package inventory

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/gsetrade/gsebook/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, err := parseMoney(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

// moneyPattern bounds amounts to 12 integer digits and cents. Exponent
// forms like 1e9 are rejected.
var moneyPattern = regexp.MustCompile(`^-?\d{1,12}(\.\d{1,2})?$`)

// parseMoney accepts plain decimals and tolerates thousands separators.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	if !moneyPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return decimal.NewFromString(s)
}

func mustMoney(s string) decimal.Decimal {
	d, _ := parseMoney(s)
	return d
}

func mustDate(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, strings.TrimSpace(s))
	return t
}

// first returns the value of the first of names present in form.
func first(form url.Values, names ...string) (string, bool) {
	for _, n := range names {
		if form.Has(n) {
			return strings.TrimSpace(form.Get(n)), true
		}
	}
	return "", false
}

func value(form url.Values, names ...string) string {
	v, _ := first(form, names...)
	return v
}

// PurchaseInput is a validated purchase-side form.
type PurchaseInput struct {
	Type         model.ItemType
	Name         string
	PurchaseDate time.Time
	Seller       model.Party
	Price        decimal.Decimal
	Expenses     model.Expenses
	Specs        model.Specifications
}

// apply overwrites every purchase-side field of item.
func (in *PurchaseInput) apply(item *model.Item) {
	item.Type = in.Type
	item.Name = in.Name
	item.PurchaseDate = in.PurchaseDate
	item.Seller = in.Seller
	item.Price = in.Price
	item.Expenses = in.Expenses
	item.Specifications = in.Specs.Map()
}

type purchaseForm struct {
	Name           string `form:"name" validate:"required,max=200"`
	ItemType       string `form:"item_type" validate:"required,oneof=laptop smartphone"`
	SellerName     string `form:"seller_name" validate:"required,max=200"`
	SellerNIC      string `form:"seller_nic" validate:"max=50"`
	SellerContact  string `form:"seller_contact" validate:"required,max=100"`
	SellerLocation string `form:"seller_location" validate:"required,max=200"`
	PurchaseDate   string `form:"purchase_date" validate:"required,datetime=2006-01-02"`
	ItemPrice      string `form:"item_price" validate:"required,money"`
	Transport      string `form:"transport_cost" validate:"omitempty,money"`
	Food           string `form:"food_cost" validate:"omitempty,money"`
	Fuel           string `form:"fuel_cost" validate:"omitempty,money"`
	Other          string `form:"other_expenses" validate:"omitempty,money"`
}

// ParsePurchaseForm validates and coerces the purchase-side fields of the
// add and edit forms, including the specification fields for the item type.
// Expenses may be sent either as transport_cost or as expenses[transport].
func ParsePurchaseForm(form url.Values) (*PurchaseInput, error) {
	f := purchaseForm{
		Name:           value(form, "name"),
		ItemType:       value(form, "item_type"),
		SellerName:     value(form, "seller_name"),
		SellerNIC:      value(form, "seller_nic"),
		SellerContact:  value(form, "seller_contact"),
		SellerLocation: value(form, "seller_location"),
		PurchaseDate:   value(form, "purchase_date"),
		ItemPrice:      value(form, "item_price"),
		Transport:      value(form, "transport_cost", "expenses[transport]"),
		Food:           value(form, "food_cost", "expenses[food]"),
		Fuel:           value(form, "fuel_cost", "expenses[fuel]"),
		Other:          value(form, "other_expenses", "expenses[other]"),
	}

	verr := &ValidationError{}
	if err := verr.addValidator(validate.Struct(f), identity); err != nil {
		return nil, fmt.Errorf("validating purchase form: %w", err)
	}

	var specs model.Specifications
	if t, err := model.ParseItemType(f.ItemType); err == nil {
		specs = specsFromForm(t, form)
		if err := verr.addValidator(validate.Struct(specs), specField); err != nil {
			return nil, fmt.Errorf("validating specifications: %w", err)
		}
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	return &PurchaseInput{
		Type:         model.ItemType(f.ItemType),
		Name:         f.Name,
		PurchaseDate: mustDate(f.PurchaseDate),
		Seller: model.Party{
			Name:     f.SellerName,
			NIC:      f.SellerNIC,
			Contact:  f.SellerContact,
			Location: f.SellerLocation,
		},
		Price: mustMoney(f.ItemPrice),
		Expenses: model.Expenses{
			Transport: mustMoney(f.Transport),
			Food:      mustMoney(f.Food),
			Fuel:      mustMoney(f.Fuel),
			Other:     mustMoney(f.Other),
		},
		Specs: specs,
	}, nil
}

func identity(s string) string { return s }

func specField(s string) string { return "specs[" + s + "]" }

// specsFromForm builds the specification variant of t from specs[...] fields.
// Fields that belong to other item types are ignored.
func specsFromForm(t model.ItemType, form url.Values) model.Specifications {
	spec := func(name string) string { return value(form, specField(name)) }

	if t == model.ItemTypeSmartphone {
		return model.SmartphoneSpecs{
			Model:    spec("model"),
			Capacity: spec("capacity"),
			Remarks:  spec("remarks"),
		}
	}

	resolution := spec("display_resolution")
	if resolution == model.CustomResolution {
		resolution = spec("custom_resolution")
	}

	features := []string{}
	seen := map[string]bool{}
	for _, f := range form["specs[features][]"] {
		f = strings.TrimSpace(f)
		if f != "" && !seen[f] {
			seen[f] = true
			features = append(features, f)
		}
	}

	return model.LaptopSpecs{
		CPU:               spec("cpu"),
		CPUSpeed:          spec("cpu_speed"),
		RAMCapacity:       spec("ram_capacity"),
		RAMType:           spec("ram_type"),
		RAMSpeed:          spec("ram_speed"),
		StorageType:       spec("storage_type"),
		StorageSize:       spec("storage_size"),
		GPUType:           spec("gpu_type"),
		GPUMemory:         spec("gpu_memory"),
		DisplayType:       spec("display_type"),
		DisplayResolution: resolution,
		Features:          features,
		Remarks:           spec("remarks"),
	}
}

// PartialExpenses holds expense fields that may be absent from a form.
type PartialExpenses struct {
	Transport, Food, Fuel, Other *decimal.Decimal
}

// ApplyTo returns e with every present field replaced.
func (p PartialExpenses) ApplyTo(e model.Expenses) model.Expenses {
	if p.Transport != nil {
		e.Transport = *p.Transport
	}
	if p.Food != nil {
		e.Food = *p.Food
	}
	if p.Fuel != nil {
		e.Fuel = *p.Fuel
	}
	if p.Other != nil {
		e.Other = *p.Other
	}
	return e
}

// SaleInput is a validated sale-side form.
type SaleInput struct {
	Date     time.Time
	Price    decimal.Decimal
	Buyer    model.Party
	Expenses model.Expenses

	// PurchaseExpenses are the unprefixed expense fields resubmitted with a
	// mark-as-sold form. They only take effect under PolicyOverwrite.
	PurchaseExpenses PartialExpenses
}

func (in *SaleInput) sale() model.Sale {
	return model.Sale{Date: in.Date, Price: in.Price, Buyer: in.Buyer, Expenses: in.Expenses}
}

type saleForm struct {
	SellingDate   string `form:"selling_date" validate:"required,datetime=2006-01-02"`
	SellingPrice  string `form:"selling_price" validate:"required,money"`
	BuyerName     string `form:"buyer_name" validate:"required,max=200"`
	BuyerNIC      string `form:"buyer_nic" validate:"max=50"`
	BuyerContact  string `form:"buyer_contact" validate:"required,max=100"`
	BuyerLocation string `form:"buyer_location" validate:"required,max=200"`
	Transport     string `form:"sale_transport_cost" validate:"omitempty,money"`
	Food          string `form:"sale_food_cost" validate:"omitempty,money"`
	Fuel          string `form:"sale_fuel_cost" validate:"omitempty,money"`
	Other         string `form:"sale_other_expenses" validate:"omitempty,money"`

	PurchaseTransport string `form:"transport_cost" validate:"omitempty,money"`
	PurchaseFood      string `form:"food_cost" validate:"omitempty,money"`
	PurchaseFuel      string `form:"fuel_cost" validate:"omitempty,money"`
	PurchaseOther     string `form:"other_expenses" validate:"omitempty,money"`
}

// ParseSaleForm validates a mark-as-sold form. Sale expenses are read from
// the sale_* fields, falling back to the unprefixed names that older forms
// send; the unprefixed names are also kept as PurchaseExpenses.
func ParseSaleForm(form url.Values) (*SaleInput, error) {
	return parseSale(form, true)
}

// ParseEditSaleForm validates the sale section of an edit form, where the
// unprefixed expense fields belong to the purchase.
func ParseEditSaleForm(form url.Values) (*SaleInput, error) {
	return parseSale(form, false)
}

func parseSale(form url.Values, markSold bool) (*SaleInput, error) {
	saleNames := func(name, legacy string) []string {
		if markSold {
			return []string{name, legacy}
		}
		return []string{name}
	}

	f := saleForm{
		SellingDate:   value(form, "selling_date"),
		SellingPrice:  value(form, "selling_price"),
		BuyerName:     value(form, "buyer_name"),
		BuyerNIC:      value(form, "buyer_nic"),
		BuyerContact:  value(form, "buyer_contact"),
		BuyerLocation: value(form, "buyer_location"),
		Transport:     value(form, saleNames("sale_transport_cost", "transport_cost")...),
		Food:          value(form, saleNames("sale_food_cost", "food_cost")...),
		Fuel:          value(form, saleNames("sale_fuel_cost", "fuel_cost")...),
		Other:         value(form, saleNames("sale_other_expenses", "other_expenses")...),
	}
	if markSold {
		f.PurchaseTransport = value(form, "transport_cost")
		f.PurchaseFood = value(form, "food_cost")
		f.PurchaseFuel = value(form, "fuel_cost")
		f.PurchaseOther = value(form, "other_expenses")
	}

	verr := &ValidationError{}
	if err := verr.addValidator(validate.Struct(f), identity); err != nil {
		return nil, fmt.Errorf("validating sale form: %w", err)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	in := &SaleInput{
		Date:  mustDate(f.SellingDate),
		Price: mustMoney(f.SellingPrice),
		Buyer: model.Party{
			Name:     f.BuyerName,
			NIC:      f.BuyerNIC,
			Contact:  f.BuyerContact,
			Location: f.BuyerLocation,
		},
		Expenses: model.Expenses{
			Transport: mustMoney(f.Transport),
			Food:      mustMoney(f.Food),
			Fuel:      mustMoney(f.Fuel),
			Other:     mustMoney(f.Other),
		},
	}

	if markSold {
		present := func(name, raw string) *decimal.Decimal {
			if !form.Has(name) {
				return nil
			}
			d := mustMoney(raw)
			return &d
		}
		in.PurchaseExpenses = PartialExpenses{
			Transport: present("transport_cost", f.PurchaseTransport),
			Food:      present("food_cost", f.PurchaseFood),
			Fuel:      present("fuel_cost", f.PurchaseFuel),
			Other:     present("other_expenses", f.PurchaseOther),
		}
	}

	return in, nil
}
