package store

import (
	"context"
	"sync"
	"time"

	"github.com/ruralpay/deposits/internal/models"
)

// MemoryStore keeps everything in process memory. Listings follow insertion
// order. It backs tests and single-node demos.
type MemoryStore struct {
	mu sync.RWMutex

	customers     map[string]models.Customer
	customerOrder []string
	products      map[string]models.Product
	productOrder  []string
	accounts      map[string]models.Account
	accountOrder  []string
	transactions  map[int64]models.Transaction
	txOrder       []int64
	nextTxID      int64

	locksMu      sync.Mutex
	accountLocks map[string]*sync.Mutex

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:    make(map[string]models.Customer),
		products:     make(map[string]models.Product),
		accounts:     make(map[string]models.Account),
		transactions: make(map[int64]models.Transaction),
		accountLocks: make(map[string]*sync.Mutex),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.customers[c.CustomerID]; exists {
		return models.NewDuplicateKey("Customer", c.CustomerID)
	}
	m.customers[c.CustomerID] = *c
	m.customerOrder = append(m.customerOrder, c.CustomerID)
	return nil
}

func (m *MemoryStore) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[customerID]
	if !ok {
		return nil, models.NewNotFound("Customer")
	}
	return &c, nil
}

func (m *MemoryStore) ListCustomers(ctx context.Context, page models.Page) ([]models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start, end := window(len(m.customerOrder), page)
	out := make([]models.Customer, 0, end-start)
	for _, id := range m.customerOrder[start:end] {
		out = append(out, m.customers[id])
	}
	return out, nil
}

func (m *MemoryStore) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[c.CustomerID]; !ok {
		return models.NewNotFound("Customer")
	}
	m.customers[c.CustomerID] = *c
	return nil
}

func (m *MemoryStore) DeleteCustomer(ctx context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customerID]; !ok {
		return models.NewNotFound("Customer")
	}
	for _, a := range m.accounts {
		if a.CustomerID == customerID {
			return models.NewHasDependents("customer", "accounts")
		}
	}
	delete(m.customers, customerID)
	m.customerOrder = removeKey(m.customerOrder, customerID)
	return nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.products[p.ProductCode]; exists {
		return models.NewDuplicateKey("Product", p.ProductCode)
	}
	m.products[p.ProductCode] = copyProduct(*p)
	m.productOrder = append(m.productOrder, p.ProductCode)
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, productCode string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[productCode]
	if !ok {
		return nil, models.NewNotFound("Product")
	}
	p = copyProduct(p)
	return &p, nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, page models.Page) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start, end := window(len(m.productOrder), page)
	out := make([]models.Product, 0, end-start)
	for _, code := range m.productOrder[start:end] {
		out = append(out, copyProduct(m.products[code]))
	}
	return out, nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ProductCode]; !ok {
		return models.NewNotFound("Product")
	}
	m.products[p.ProductCode] = copyProduct(*p)
	return nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, productCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productCode]; !ok {
		return models.NewNotFound("Product")
	}
	for _, a := range m.accounts {
		if a.ProductCode == productCode {
			return models.NewHasDependents("product", "accounts")
		}
	}
	delete(m.products, productCode)
	m.productOrder = removeKey(m.productOrder, productCode)
	return nil
}

func (m *MemoryStore) CreateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[a.AccountNumber]; exists {
		return models.NewDuplicateKey("Account", a.AccountNumber)
	}
	if _, ok := m.customers[a.CustomerID]; !ok {
		return models.NewReferenceNotFound("Customer")
	}
	if _, ok := m.products[a.ProductCode]; !ok {
		return models.NewReferenceNotFound("Product")
	}
	m.accounts[a.AccountNumber] = copyAccount(*a)
	m.accountOrder = append(m.accountOrder, a.AccountNumber)
	return nil
}

func (m *MemoryStore) GetAccount(ctx context.Context, accountNumber string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[accountNumber]
	if !ok {
		return nil, models.NewNotFound("Account")
	}
	a = copyAccount(a)
	return &a, nil
}

func (m *MemoryStore) ListAccounts(ctx context.Context, page models.Page) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start, end := window(len(m.accountOrder), page)
	out := make([]models.Account, 0, end-start)
	for _, n := range m.accountOrder[start:end] {
		out = append(out, copyAccount(m.accounts[n]))
	}
	return out, nil
}

func (m *MemoryStore) UpdateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.AccountNumber]; !ok {
		return models.NewNotFound("Account")
	}
	if _, ok := m.customers[a.CustomerID]; !ok {
		return models.NewReferenceNotFound("Customer")
	}
	if _, ok := m.products[a.ProductCode]; !ok {
		return models.NewReferenceNotFound("Product")
	}
	m.accounts[a.AccountNumber] = copyAccount(*a)
	return nil
}

func (m *MemoryStore) DeleteAccount(ctx context.Context, accountNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountNumber]; !ok {
		return models.NewNotFound("Account")
	}
	for _, t := range m.transactions {
		if t.AccountNumber == accountNumber {
			return models.NewHasDependents("account", "transactions")
		}
	}
	delete(m.accounts, accountNumber)
	m.accountOrder = removeKey(m.accountOrder, accountNumber)
	return nil
}

func (m *MemoryStore) CountAccounts(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts), nil
}

func (m *MemoryStore) CountAccountsByCustomer(ctx context.Context, customerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.accounts {
		if a.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CountAccountsByProduct(ctx context.Context, productCode string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.accounts {
		if a.ProductCode == productCode {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[t.AccountNumber]; !ok {
		return models.NewReferenceNotFound("Account")
	}
	m.nextTxID++
	t.TransactionID = m.nextTxID
	t.RegistrationDate = m.now()
	m.transactions[t.TransactionID] = *t
	m.txOrder = append(m.txOrder, t.TransactionID)
	return nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[transactionID]
	if !ok {
		return nil, models.NewNotFound("Transaction")
	}
	return &t, nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, page models.Page) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start, end := window(len(m.txOrder), page)
	out := make([]models.Transaction, 0, end-start)
	for _, id := range m.txOrder[start:end] {
		out = append(out, m.transactions[id])
	}
	return out, nil
}

func (m *MemoryStore) ListTransactionsByAccount(ctx context.Context, accountNumber string, page models.Page) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []int64
	for _, id := range m.txOrder {
		if m.transactions[id].AccountNumber == accountNumber {
			matched = append(matched, id)
		}
	}
	start, end := window(len(matched), page)
	out := make([]models.Transaction, 0, end-start)
	for _, id := range matched[start:end] {
		out = append(out, m.transactions[id])
	}
	return out, nil
}

func (m *MemoryStore) LatestTransaction(ctx context.Context, accountNumber string) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.Transaction
	for _, id := range m.txOrder {
		t := m.transactions[id]
		if t.AccountNumber != accountNumber {
			continue
		}
		// txOrder is ascending by id, so !Before keeps the newest insert on ties
		if latest == nil || !t.TransactionDate.Before(latest.TransactionDate) {
			tc := t
			latest = &tc
		}
	}
	if latest == nil {
		return nil, models.NewNotFound("Transaction")
	}
	return latest, nil
}

func (m *MemoryStore) CountTransactionsByAccount(ctx context.Context, accountNumber string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.transactions {
		if t.AccountNumber == accountNumber {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, transactionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[transactionID]; !ok {
		return models.NewNotFound("Transaction")
	}
	delete(m.transactions, transactionID)
	for i, id := range m.txOrder {
		if id == transactionID {
			m.txOrder = append(m.txOrder[:i], m.txOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) WithAccountLock(ctx context.Context, accountNumber string, fn func(q Querier) error) error {
	if _, err := m.GetAccount(ctx, accountNumber); err != nil {
		return err
	}

	lock := m.accountLock(accountNumber)
	lock.Lock()
	defer lock.Unlock()

	scoped := &memoryUnit{MemoryStore: m}
	if err := fn(scoped); err != nil {
		scoped.undo(ctx)
		return err
	}
	return nil
}

func (m *MemoryStore) accountLock(accountNumber string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.accountLocks[accountNumber]
	if !ok {
		lock = &sync.Mutex{}
		m.accountLocks[accountNumber] = lock
	}
	return lock
}

// memoryUnit remembers ledger entries written under an account lock so they
// can be withdrawn when the unit fails.
type memoryUnit struct {
	*MemoryStore
	created []int64
}

func (u *memoryUnit) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if err := u.MemoryStore.CreateTransaction(ctx, t); err != nil {
		return err
	}
	u.created = append(u.created, t.TransactionID)
	return nil
}

func (u *memoryUnit) undo(ctx context.Context) {
	for _, id := range u.created {
		_ = u.MemoryStore.DeleteTransaction(ctx, id)
	}
}

func window(n int, page models.Page) (int, int) {
	start := page.Skip
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if page.Limit >= 0 && start+page.Limit < n {
		end = start + page.Limit
	}
	return start, end
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

func copyProduct(p models.Product) models.Product {
	if p.EligibleAge != nil {
		age := *p.EligibleAge
		p.EligibleAge = &age
	}
	return p
}

func copyAccount(a models.Account) models.Account {
	if a.LinkedSubstituteAccountNumber != nil {
		linked := *a.LinkedSubstituteAccountNumber
		a.LinkedSubstituteAccountNumber = &linked
	}
	return a
}

var _ Store = (*MemoryStore)(nil)
