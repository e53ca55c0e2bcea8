package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ruralpay/deposits/internal/models"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqNumericOutOfRange   = "22003"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// PostgresStore persists through database/sql with the lib/pq driver.
type PostgresStore struct {
	db *sql.DB
	postgresQuerier
}

type postgresQuerier struct {
	q dbtx
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, postgresQuerier: postgresQuerier{q: db}}
}

// WithAccountLock takes a row lock on the account for the life of a
// transaction; concurrent postings to the same account queue behind it.
func (s *PostgresStore) WithAccountLock(ctx context.Context, accountNumber string, fn func(q Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin account lock: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT account_number FROM account WHERE account_number = $1 FOR UPDATE`,
		accountNumber).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFound("Account")
	}
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}

	if err := fn(&postgresQuerier{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit account lock: %w", err)
	}
	return nil
}

// translate maps driver errors onto the domain taxonomy. onDelete selects how
// a foreign key violation reads: a blocked delete or a missing reference.
func translate(err error, entity string, key string, onDelete bool) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return models.NewDuplicateKey(entity, key)
	case pqForeignKeyViolation:
		if onDelete {
			return models.NewHasDependents(lowerEntity(entity), childrenOf(entity))
		}
		return models.NewReferenceNotFound(referencedBy(pqErr.Constraint))
	case pqCheckViolation:
		return models.NewInvariantViolation(entity, pqErr.Message)
	case pqNumericOutOfRange:
		return models.NewValidation(entity + " amount out of range")
	}
	return err
}

// referencedBy names the parent behind a default foreign key constraint name
func referencedBy(constraint string) string {
	switch {
	case strings.Contains(constraint, "customer_id"):
		return "Customer"
	case strings.Contains(constraint, "product_code"):
		return "Product"
	}
	return "Account"
}

func lowerEntity(entity string) string {
	switch entity {
	case "Customer":
		return "customer"
	case "Product":
		return "product"
	case "Account":
		return "account"
	}
	return entity
}

func childrenOf(entity string) string {
	if entity == "Account" {
		return "transactions"
	}
	return "accounts"
}

func requireAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NewNotFound(entity)
	}
	return nil
}

func (p *postgresQuerier) CreateCustomer(ctx context.Context, c *models.Customer) error {
	err := p.q.QueryRowContext(ctx, `
		INSERT INTO customer (customer_id, customer_name, customer_type, real_name_identification_number)
		VALUES ($1, $2, $3, $4)
		RETURNING registration_date, last_modified_date`,
		c.CustomerID, c.CustomerName, c.CustomerType, c.RealNameIdentificationNumber,
	).Scan(&c.RegistrationDate, &c.LastModifiedDate)
	if err != nil {
		return translate(err, "Customer", c.CustomerID, false)
	}
	return nil
}

const customerColumns = `customer_id, customer_name, customer_type, real_name_identification_number,
	registration_date, last_modified_date`

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.CustomerID, &c.CustomerName, &c.CustomerType, &c.RealNameIdentificationNumber,
		&c.RegistrationDate, &c.LastModifiedDate)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *postgresQuerier) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	c, err := scanCustomer(p.q.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customer WHERE customer_id = $1`, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("Customer")
	}
	return c, err
}

func (p *postgresQuerier) ListCustomers(ctx context.Context, page models.Page) ([]models.Customer, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customer ORDER BY registration_date, customer_id OFFSET $1 LIMIT $2`,
		page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (p *postgresQuerier) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	res, err := p.q.ExecContext(ctx, `
		UPDATE customer
		SET customer_name = $2, customer_type = $3, real_name_identification_number = $4, last_modified_date = $5
		WHERE customer_id = $1`,
		c.CustomerID, c.CustomerName, c.CustomerType, c.RealNameIdentificationNumber, c.LastModifiedDate)
	if err != nil {
		return translate(err, "Customer", c.CustomerID, false)
	}
	return requireAffected(res, "Customer")
}

func (p *postgresQuerier) DeleteCustomer(ctx context.Context, customerID string) error {
	res, err := p.q.ExecContext(ctx, `DELETE FROM customer WHERE customer_id = $1`, customerID)
	if err != nil {
		return translate(err, "Customer", customerID, true)
	}
	return requireAffected(res, "Customer")
}

func (p *postgresQuerier) CreateProduct(ctx context.Context, pr *models.Product) error {
	err := p.q.QueryRowContext(ctx, `
		INSERT INTO product (product_code, product_name, eligible_customer_type, taxation_code, eligible_age,
			base_interest_rate, additional_interest_rate, applied_interest_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING registration_date, last_modified_date`,
		pr.ProductCode, pr.ProductName, pr.EligibleCustomerType, pr.TaxationCode, nullInt(pr.EligibleAge),
		pr.BaseInterestRate, pr.AdditionalInterestRate, pr.AppliedInterestRate,
	).Scan(&pr.RegistrationDate, &pr.LastModifiedDate)
	if err != nil {
		return translate(err, "Product", pr.ProductCode, false)
	}
	return nil
}

const productColumns = `product_code, product_name, eligible_customer_type, taxation_code, eligible_age,
	base_interest_rate, additional_interest_rate, applied_interest_rate, registration_date, last_modified_date`

func scanProduct(row rowScanner) (*models.Product, error) {
	var pr models.Product
	var age sql.NullInt64
	err := row.Scan(&pr.ProductCode, &pr.ProductName, &pr.EligibleCustomerType, &pr.TaxationCode, &age,
		&pr.BaseInterestRate, &pr.AdditionalInterestRate, &pr.AppliedInterestRate,
		&pr.RegistrationDate, &pr.LastModifiedDate)
	if err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		pr.EligibleAge = &v
	}
	return &pr, nil
}

func (p *postgresQuerier) GetProduct(ctx context.Context, productCode string) (*models.Product, error) {
	pr, err := scanProduct(p.q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM product WHERE product_code = $1`, productCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("Product")
	}
	return pr, err
}

func (p *postgresQuerier) ListProducts(ctx context.Context, page models.Page) ([]models.Product, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM product ORDER BY registration_date, product_code OFFSET $1 LIMIT $2`,
		page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		pr, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *pr)
	}
	return products, rows.Err()
}

func (p *postgresQuerier) UpdateProduct(ctx context.Context, pr *models.Product) error {
	res, err := p.q.ExecContext(ctx, `
		UPDATE product
		SET product_name = $2, eligible_customer_type = $3, taxation_code = $4, eligible_age = $5,
			base_interest_rate = $6, additional_interest_rate = $7, applied_interest_rate = $8,
			last_modified_date = $9
		WHERE product_code = $1`,
		pr.ProductCode, pr.ProductName, pr.EligibleCustomerType, pr.TaxationCode, nullInt(pr.EligibleAge),
		pr.BaseInterestRate, pr.AdditionalInterestRate, pr.AppliedInterestRate, pr.LastModifiedDate)
	if err != nil {
		return translate(err, "Product", pr.ProductCode, false)
	}
	return requireAffected(res, "Product")
}

func (p *postgresQuerier) DeleteProduct(ctx context.Context, productCode string) error {
	res, err := p.q.ExecContext(ctx, `DELETE FROM product WHERE product_code = $1`, productCode)
	if err != nil {
		return translate(err, "Product", productCode, true)
	}
	return requireAffected(res, "Product")
}

func (p *postgresQuerier) CreateAccount(ctx context.Context, a *models.Account) error {
	err := p.q.QueryRowContext(ctx, `
		INSERT INTO account (account_number, customer_id, product_code, real_name_identification_number,
			customer_type, taxation_code, initial_deposit_amount, passbook_exemption_flag,
			base_interest_rate, additional_interest_rate, applied_interest_rate, account_password,
			cash_amount, linked_substitute_amount, linked_substitute_account_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING account_opening_date, last_modified_date`,
		a.AccountNumber, a.CustomerID, a.ProductCode, a.RealNameIdentificationNumber,
		a.CustomerType, a.TaxationCode, a.InitialDepositAmount, a.PassbookExemptionFlag,
		a.BaseInterestRate, a.AdditionalInterestRate, a.AppliedInterestRate, a.AccountPassword,
		a.CashAmount, a.LinkedSubstituteAmount, nullString(a.LinkedSubstituteAccountNumber),
	).Scan(&a.AccountOpeningDate, &a.LastModifiedDate)
	if err != nil {
		return translate(err, "Account", a.AccountNumber, false)
	}
	return nil
}

const accountColumns = `account_number, customer_id, product_code, real_name_identification_number,
	customer_type, taxation_code, initial_deposit_amount, passbook_exemption_flag,
	base_interest_rate, additional_interest_rate, applied_interest_rate, account_password,
	cash_amount, linked_substitute_amount, linked_substitute_account_number,
	account_opening_date, last_modified_date`

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var linked sql.NullString
	err := row.Scan(&a.AccountNumber, &a.CustomerID, &a.ProductCode, &a.RealNameIdentificationNumber,
		&a.CustomerType, &a.TaxationCode, &a.InitialDepositAmount, &a.PassbookExemptionFlag,
		&a.BaseInterestRate, &a.AdditionalInterestRate, &a.AppliedInterestRate, &a.AccountPassword,
		&a.CashAmount, &a.LinkedSubstituteAmount, &linked,
		&a.AccountOpeningDate, &a.LastModifiedDate)
	if err != nil {
		return nil, err
	}
	if linked.Valid {
		v := linked.String
		a.LinkedSubstituteAccountNumber = &v
	}
	return &a, nil
}

func (p *postgresQuerier) GetAccount(ctx context.Context, accountNumber string) (*models.Account, error) {
	a, err := scanAccount(p.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM account WHERE account_number = $1`, accountNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("Account")
	}
	return a, err
}

func (p *postgresQuerier) ListAccounts(ctx context.Context, page models.Page) ([]models.Account, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM account ORDER BY account_opening_date, account_number OFFSET $1 LIMIT $2`,
		page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (p *postgresQuerier) UpdateAccount(ctx context.Context, a *models.Account) error {
	res, err := p.q.ExecContext(ctx, `
		UPDATE account
		SET customer_id = $2, product_code = $3, real_name_identification_number = $4,
			customer_type = $5, taxation_code = $6, initial_deposit_amount = $7, passbook_exemption_flag = $8,
			base_interest_rate = $9, additional_interest_rate = $10, applied_interest_rate = $11,
			account_password = $12, cash_amount = $13, linked_substitute_amount = $14,
			linked_substitute_account_number = $15, last_modified_date = $16
		WHERE account_number = $1`,
		a.AccountNumber, a.CustomerID, a.ProductCode, a.RealNameIdentificationNumber,
		a.CustomerType, a.TaxationCode, a.InitialDepositAmount, a.PassbookExemptionFlag,
		a.BaseInterestRate, a.AdditionalInterestRate, a.AppliedInterestRate,
		a.AccountPassword, a.CashAmount, a.LinkedSubstituteAmount,
		nullString(a.LinkedSubstituteAccountNumber), a.LastModifiedDate)
	if err != nil {
		return translate(err, "Account", a.AccountNumber, false)
	}
	return requireAffected(res, "Account")
}

func (p *postgresQuerier) DeleteAccount(ctx context.Context, accountNumber string) error {
	res, err := p.q.ExecContext(ctx, `DELETE FROM account WHERE account_number = $1`, accountNumber)
	if err != nil {
		return translate(err, "Account", accountNumber, true)
	}
	return requireAffected(res, "Account")
}

func (p *postgresQuerier) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := p.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *postgresQuerier) CountAccounts(ctx context.Context) (int, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM account`)
}

func (p *postgresQuerier) CountAccountsByCustomer(ctx context.Context, customerID string) (int, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM account WHERE customer_id = $1`, customerID)
}

func (p *postgresQuerier) CountAccountsByProduct(ctx context.Context, productCode string) (int, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM account WHERE product_code = $1`, productCode)
}

func (p *postgresQuerier) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	err := p.q.QueryRowContext(ctx, `
		INSERT INTO account_transaction (account_number, transaction_date, transaction_type,
			transaction_amount, balance_after_transaction)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING transaction_id, registration_date`,
		t.AccountNumber, t.TransactionDate, t.TransactionType, t.TransactionAmount, t.BalanceAfterTransaction,
	).Scan(&t.TransactionID, &t.RegistrationDate)
	if err != nil {
		return translate(err, "Transaction", t.AccountNumber, false)
	}
	return nil
}

const transactionColumns = `transaction_id, account_number, transaction_date, transaction_type,
	transaction_amount, balance_after_transaction, registration_date`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.TransactionID, &t.AccountNumber, &t.TransactionDate, &t.TransactionType,
		&t.TransactionAmount, &t.BalanceAfterTransaction, &t.RegistrationDate)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *postgresQuerier) listTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func (p *postgresQuerier) GetTransaction(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	t, err := scanTransaction(p.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM account_transaction WHERE transaction_id = $1`, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("Transaction")
	}
	return t, err
}

func (p *postgresQuerier) ListTransactions(ctx context.Context, page models.Page) ([]models.Transaction, error) {
	return p.listTransactions(ctx,
		`SELECT `+transactionColumns+` FROM account_transaction ORDER BY transaction_id OFFSET $1 LIMIT $2`,
		page.Skip, page.Limit)
}

func (p *postgresQuerier) ListTransactionsByAccount(ctx context.Context, accountNumber string, page models.Page) ([]models.Transaction, error) {
	return p.listTransactions(ctx,
		`SELECT `+transactionColumns+` FROM account_transaction WHERE account_number = $1
		ORDER BY transaction_id OFFSET $2 LIMIT $3`,
		accountNumber, page.Skip, page.Limit)
}

func (p *postgresQuerier) LatestTransaction(ctx context.Context, accountNumber string) (*models.Transaction, error) {
	t, err := scanTransaction(p.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM account_transaction WHERE account_number = $1
		ORDER BY transaction_date DESC, transaction_id DESC LIMIT 1`, accountNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("Transaction")
	}
	return t, err
}

func (p *postgresQuerier) CountTransactionsByAccount(ctx context.Context, accountNumber string) (int, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM account_transaction WHERE account_number = $1`, accountNumber)
}

func (p *postgresQuerier) DeleteTransaction(ctx context.Context, transactionID int64) error {
	res, err := p.q.ExecContext(ctx, `DELETE FROM account_transaction WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return err
	}
	return requireAffected(res, "Transaction")
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

var _ Store = (*PostgresStore)(nil)
