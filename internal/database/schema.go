package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Parents are restricted rather than cascaded so that a delete with children
// fails even if the service-level dependent check races with an insert.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS customer (
		customer_id VARCHAR(36) PRIMARY KEY,
		customer_name VARCHAR(100) NOT NULL,
		customer_type SMALLINT NOT NULL CHECK (customer_type IN (1, 2)),
		real_name_identification_number CHAR(13) NOT NULL,
		registration_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_modified_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS product (
		product_code CHAR(6) PRIMARY KEY,
		product_name VARCHAR(100) NOT NULL,
		eligible_customer_type SMALLINT NOT NULL CHECK (eligible_customer_type IN (1, 2)),
		taxation_code CHAR(1) NOT NULL,
		eligible_age INTEGER,
		base_interest_rate NUMERIC(6, 3) NOT NULL,
		additional_interest_rate NUMERIC(6, 3) NOT NULL,
		applied_interest_rate NUMERIC(6, 3) NOT NULL,
		registration_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_modified_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS account (
		account_number VARCHAR(16) PRIMARY KEY,
		customer_id VARCHAR(36) NOT NULL REFERENCES customer (customer_id) ON DELETE RESTRICT,
		product_code CHAR(6) NOT NULL REFERENCES product (product_code) ON DELETE RESTRICT,
		real_name_identification_number CHAR(13) NOT NULL,
		customer_type SMALLINT NOT NULL,
		taxation_code CHAR(1) NOT NULL,
		initial_deposit_amount NUMERIC(12, 0) NOT NULL,
		passbook_exemption_flag BOOLEAN NOT NULL DEFAULT FALSE,
		base_interest_rate NUMERIC(6, 3) NOT NULL,
		additional_interest_rate NUMERIC(6, 3) NOT NULL,
		applied_interest_rate NUMERIC(6, 3) NOT NULL,
		account_password CHAR(4) NOT NULL,
		cash_amount NUMERIC(12, 0) NOT NULL,
		linked_substitute_amount NUMERIC(12, 0) NOT NULL,
		linked_substitute_account_number CHAR(10),
		account_opening_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_modified_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT deposit_composition CHECK (initial_deposit_amount = cash_amount + linked_substitute_amount)
	)`,
	`CREATE TABLE IF NOT EXISTS account_transaction (
		transaction_id BIGSERIAL PRIMARY KEY,
		account_number VARCHAR(16) NOT NULL REFERENCES account (account_number) ON DELETE RESTRICT,
		transaction_date TIMESTAMPTZ NOT NULL,
		transaction_type SMALLINT NOT NULL CHECK (transaction_type IN (1, 2)),
		transaction_amount NUMERIC(12, 0) NOT NULL CHECK (transaction_amount > 0),
		balance_after_transaction NUMERIC(12, 0) NOT NULL CHECK (balance_after_transaction >= 0),
		registration_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS account_transaction_latest_idx
		ON account_transaction (account_number, transaction_date DESC, transaction_id DESC)`,
	`CREATE INDEX IF NOT EXISTS account_customer_idx ON account (customer_id)`,
	`CREATE INDEX IF NOT EXISTS account_product_idx ON account (product_code)`,
}

// Migrate creates the ledger tables when they do not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	log.Printf("[DATABASE] Schema up to date (%d statements)", len(schema))
	return nil
}
