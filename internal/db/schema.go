package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// Money columns hold decimal strings and dates hold YYYY-MM-DD text so that
// values read back are exactly the values written.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id               INTEGER PRIMARY KEY,
    item_type        TEXT NOT NULL CHECK (item_type IN ('laptop', 'smartphone')),
    name             TEXT NOT NULL,
    purchase_date    TEXT NOT NULL,
    seller_name      TEXT NOT NULL,
    seller_nic       TEXT NOT NULL DEFAULT '',
    seller_contact   TEXT NOT NULL DEFAULT '',
    seller_location  TEXT NOT NULL DEFAULT '',
    item_price       TEXT NOT NULL,
    transport_cost   TEXT NOT NULL DEFAULT '0',
    food_cost        TEXT NOT NULL DEFAULT '0',
    fuel_cost        TEXT NOT NULL DEFAULT '0',
    other_expenses   TEXT NOT NULL DEFAULT '0',
    specifications   TEXT NOT NULL DEFAULT '{}',
    images           TEXT NOT NULL DEFAULT '[]',
    agreement_image  TEXT NOT NULL CHECK (agreement_image <> ''),
    buyer_name       TEXT,
    buyer_nic        TEXT,
    buyer_contact    TEXT,
    buyer_location   TEXT,
    selling_date     TEXT,
    selling_price    TEXT,
    sale_transport_cost  TEXT,
    sale_food_cost       TEXT,
    sale_fuel_cost       TEXT,
    sale_other_expenses  TEXT,
    gross_profit     TEXT,
    net_profit       TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((selling_date IS NULL) = (selling_price IS NULL))
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
