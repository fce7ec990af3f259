package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gsetrade/gsebook/internal/model"
)

const itemColumns = `id, item_type, name, purchase_date,
	seller_name, seller_nic, seller_contact, seller_location,
	item_price, transport_cost, food_cost, fuel_cost, other_expenses,
	specifications, images, agreement_image,
	buyer_name, buyer_nic, buyer_contact, buyer_location,
	selling_date, selling_price,
	sale_transport_cost, sale_food_cost, sale_fuel_cost, sale_other_expenses,
	gross_profit, net_profit, created_at`

// CreateItem inserts a new item row and returns it as stored.
func CreateItem(ctx context.Context, db DBTX, item *model.Item) (*model.Item, error) {
	args, err := itemArgs(item)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (item_type, name, purchase_date,
			seller_name, seller_nic, seller_contact, seller_location,
			item_price, transport_cost, food_cost, fuel_cost, other_expenses,
			specifications, images, agreement_image,
			buyer_name, buyer_nic, buyer_contact, buyer_location,
			selling_date, selling_price,
			sale_transport_cost, sale_food_cost, sale_fuel_cost, sale_other_expenses,
			gross_profit, net_profit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items, most recent purchase first.
func ListItems(ctx context.Context, db DBTX) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY purchase_date DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem overwrites every mutable column of an existing item.
// It reports whether a row was updated.
func UpdateItem(ctx context.Context, db DBTX, item *model.Item) (bool, error) {
	args, err := itemArgs(item)
	if err != nil {
		return false, err
	}
	args = append(args, item.ID)

	result, err := db.ExecContext(ctx,
		`UPDATE items SET item_type = ?, name = ?, purchase_date = ?,
			seller_name = ?, seller_nic = ?, seller_contact = ?, seller_location = ?,
			item_price = ?, transport_cost = ?, food_cost = ?, fuel_cost = ?, other_expenses = ?,
			specifications = ?, images = ?, agreement_image = ?,
			buyer_name = ?, buyer_nic = ?, buyer_contact = ?, buyer_location = ?,
			selling_date = ?, selling_price = ?,
			sale_transport_cost = ?, sale_food_cost = ?, sale_fuel_cost = ?, sale_other_expenses = ?,
			gross_profit = ?, net_profit = ?
		 WHERE id = ?`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	return n > 0, nil
}

// DeleteItem removes an item row. It reports whether a row was deleted.
func DeleteItem(ctx context.Context, db DBTX, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	return n > 0, nil
}

// itemArgs returns the column values of item in itemColumns order, minus id and created_at.
func itemArgs(item *model.Item) ([]any, error) {
	images := item.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encoding images: %w", err)
	}

	args := []any{
		string(item.Type), item.Name, item.PurchaseDate.Format(model.DateLayout),
		item.Seller.Name, item.Seller.NIC, item.Seller.Contact, item.Seller.Location,
		item.Price, item.Expenses.Transport, item.Expenses.Food, item.Expenses.Fuel, item.Expenses.Other,
		item.Specifications, string(imagesJSON), item.AgreementImage,
	}

	if s := item.Sale; s != nil {
		args = append(args,
			s.Buyer.Name, s.Buyer.NIC, s.Buyer.Contact, s.Buyer.Location,
			s.Date.Format(model.DateLayout), s.Price,
			s.Expenses.Transport, s.Expenses.Food, s.Expenses.Fuel, s.Expenses.Other,
			s.GrossProfit, s.NetProfit,
		)
	} else {
		for i := 0; i < 12; i++ {
			args = append(args, nil)
		}
	}
	return args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item         model.Item
		itemType     string
		purchaseDate string
		images       string

		buyerName, buyerNIC, buyerContact, buyerLocation sql.NullString
		sellingDate                                      sql.NullString
		sellingPrice                                     decimal.NullDecimal
		saleTransport, saleFood, saleFuel, saleOther     decimal.NullDecimal
		gross, net                                       decimal.NullDecimal
	)

	err := row.Scan(
		&item.ID, &itemType, &item.Name, &purchaseDate,
		&item.Seller.Name, &item.Seller.NIC, &item.Seller.Contact, &item.Seller.Location,
		&item.Price, &item.Expenses.Transport, &item.Expenses.Food, &item.Expenses.Fuel, &item.Expenses.Other,
		&item.Specifications, &images, &item.AgreementImage,
		&buyerName, &buyerNIC, &buyerContact, &buyerLocation,
		&sellingDate, &sellingPrice,
		&saleTransport, &saleFood, &saleFuel, &saleOther,
		&gross, &net, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Type = model.ItemType(itemType)
	item.PurchaseDate, err = time.Parse(model.DateLayout, purchaseDate)
	if err != nil {
		return nil, fmt.Errorf("parsing purchase date: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &item.Images); err != nil {
		return nil, fmt.Errorf("decoding images: %w", err)
	}
	if item.Images == nil {
		item.Images = []string{}
	}

	if sellingDate.Valid && sellingPrice.Valid {
		date, err := time.Parse(model.DateLayout, sellingDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing selling date: %w", err)
		}
		item.Sale = &model.Sale{
			Date:  date,
			Price: sellingPrice.Decimal,
			Buyer: model.Party{
				Name:     buyerName.String,
				NIC:      buyerNIC.String,
				Contact:  buyerContact.String,
				Location: buyerLocation.String,
			},
			Expenses: model.Expenses{
				Transport: saleTransport.Decimal,
				Food:      saleFood.Decimal,
				Fuel:      saleFuel.Decimal,
				Other:     saleOther.Decimal,
			},
			GrossProfit: gross.Decimal,
			NetProfit:   net.Decimal,
		}
	}

	return &item, nil
}
