package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/shopspring/decimal"
)

// MockCategoryRepository is a mock implementation of domain.CategoryRepository.
// It reads transactions from Transactions when set so LoadTransactions sees
// rows created through a MockTransactionRepository.
type MockCategoryRepository struct {
	Categories   map[int32]*domain.Category
	Transactions *MockTransactionRepository
	NextID       int32

	CreateFn           func(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetByIDFn          func(ctx context.Context, id int32) (*domain.Category, error)
	UpdateFn           func(ctx context.Context, category *domain.Category) (*domain.Category, error)
	HardDeleteFn       func(ctx context.Context, id int32) error
	SoftDeleteFn       func(ctx context.Context, id int32, deletedAt time.Time) error
	LoadTransactionsFn func(ctx context.Context, categoryID int32) ([]*domain.Transaction, error)
}

// NewMockCategoryRepository creates a new MockCategoryRepository
func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		Categories: make(map[int32]*domain.Category),
		NextID:     1,
	}
}

// Create creates a new category
func (m *MockCategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, category)
	}
	category.ID = m.NextID
	m.NextID++
	m.Categories[category.ID] = category
	return category, nil
}

// GetByID retrieves a category by ID, including soft-deleted ones
func (m *MockCategoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if c, ok := m.Categories[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCategoryNotFound
}

// GetActiveByName retrieves an active category by exact name
func (m *MockCategoryRepository) GetActiveByName(ctx context.Context, name string) (*domain.Category, error) {
	for _, c := range m.Categories {
		if c.Name == name && !c.IsDeleted() {
			return c, nil
		}
	}
	return nil, domain.ErrCategoryNotFound
}

// GetAllActive retrieves active categories ordered by name
func (m *MockCategoryRepository) GetAllActive(ctx context.Context) ([]*domain.Category, error) {
	result := make([]*domain.Category, 0)
	for _, c := range m.Categories {
		if !c.IsDeleted() {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Update replaces a category
func (m *MockCategoryRepository) Update(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, category)
	}
	if _, ok := m.Categories[category.ID]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	m.Categories[category.ID] = category
	return category, nil
}

// HardDelete removes a category
func (m *MockCategoryRepository) HardDelete(ctx context.Context, id int32) error {
	if m.HardDeleteFn != nil {
		return m.HardDeleteFn(ctx, id)
	}
	if _, ok := m.Categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(m.Categories, id)
	return nil
}

// SoftDelete sets deletedAt on a category
func (m *MockCategoryRepository) SoftDelete(ctx context.Context, id int32, deletedAt time.Time) error {
	if m.SoftDeleteFn != nil {
		return m.SoftDeleteFn(ctx, id, deletedAt)
	}
	c, ok := m.Categories[id]
	if !ok {
		return domain.ErrCategoryNotFound
	}
	c.DeletedAt = &deletedAt
	return nil
}

// LoadTransactions returns the transactions referencing a category
func (m *MockCategoryRepository) LoadTransactions(ctx context.Context, categoryID int32) ([]*domain.Transaction, error) {
	if m.LoadTransactionsFn != nil {
		return m.LoadTransactionsFn(ctx, categoryID)
	}
	result := make([]*domain.Transaction, 0)
	if m.Transactions == nil {
		return result, nil
	}
	for _, t := range m.Transactions.sorted() {
		if t.CategoryID == categoryID {
			result = append(result, t)
		}
	}
	return result, nil
}

// AddCategory adds a category to the mock repository (helper for tests)
func (m *MockCategoryRepository) AddCategory(category *domain.Category) {
	m.Categories[category.ID] = category
	if category.ID >= m.NextID {
		m.NextID = category.ID + 1
	}
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository
type MockTransactionRepository struct {
	Transactions map[int32]*domain.Transaction
	Categories   *MockCategoryRepository
	NextID       int32

	CreateFn         func(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error)
	GetAllFn         func(ctx context.Context) ([]*domain.Transaction, error)
	UpdateFn         func(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error)
	HardDeleteFn     func(ctx context.Context, id int32) error
	SelectInPeriodFn func(ctx context.Context, period domain.Period) ([]*domain.Transaction, error)
	SetReceiptFn     func(ctx context.Context, id int32, receiptPath *string, updatedAt time.Time) (*domain.Transaction, error)
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[int32]*domain.Transaction),
		NextID:       1,
	}
}

// NewMockRepositories returns category and transaction mocks that see each other
func NewMockRepositories() (*MockCategoryRepository, *MockTransactionRepository) {
	categories := NewMockCategoryRepository()
	transactions := NewMockTransactionRepository()
	categories.Transactions = transactions
	transactions.Categories = categories
	return categories, transactions
}

func (m *MockTransactionRepository) sorted() []*domain.Transaction {
	result := make([]*domain.Transaction, 0, len(m.Transactions))
	for _, t := range m.Transactions {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Create creates a new transaction
func (m *MockTransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, transaction)
	}
	transaction.ID = m.NextID
	m.NextID++
	m.Transactions[transaction.ID] = transaction
	return transaction, nil
}

// GetByID retrieves a transaction by ID
func (m *MockTransactionRepository) GetByID(ctx context.Context, id int32) (*domain.Transaction, error) {
	if t, ok := m.Transactions[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

// GetByName returns the oldest transaction with the exact name
func (m *MockTransactionRepository) GetByName(ctx context.Context, name string) (*domain.Transaction, error) {
	for _, t := range m.sorted() {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

// GetAll retrieves all transactions ordered by creation time
func (m *MockTransactionRepository) GetAll(ctx context.Context) ([]*domain.Transaction, error) {
	if m.GetAllFn != nil {
		return m.GetAllFn(ctx)
	}
	return m.sorted(), nil
}

// Update replaces a transaction
func (m *MockTransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, transaction)
	}
	if _, ok := m.Transactions[transaction.ID]; !ok {
		return nil, domain.ErrTransactionNotFound
	}
	m.Transactions[transaction.ID] = transaction
	return transaction, nil
}

// HardDelete removes a transaction
func (m *MockTransactionRepository) HardDelete(ctx context.Context, id int32) error {
	if m.HardDeleteFn != nil {
		return m.HardDeleteFn(ctx, id)
	}
	if _, ok := m.Transactions[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.Transactions, id)
	return nil
}

// SelectInPeriod returns transactions created within period
func (m *MockTransactionRepository) SelectInPeriod(ctx context.Context, period domain.Period) ([]*domain.Transaction, error) {
	if m.SelectInPeriodFn != nil {
		return m.SelectInPeriodFn(ctx, period)
	}
	result := make([]*domain.Transaction, 0)
	for _, t := range m.sorted() {
		if period.Contains(t.CreatedAt) {
			result = append(result, t)
		}
	}
	return result, nil
}

// Search applies filter over the stored transactions
func (m *MockTransactionRepository) Search(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error) {
	matched := make([]*domain.Transaction, 0)
	for _, t := range m.sorted() {
		if m.matches(t, filter) {
			matched = append(matched, t)
		}
	}
	total := int64(len(matched))
	start, end := filter.PageBounds(len(matched))
	return domain.NewPaginatedTransactions(matched[start:end], filter, total), nil
}

func (m *MockTransactionRepository) matches(t *domain.Transaction, f domain.TransactionFilter) bool {
	if f.Start != nil && t.CreatedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && t.CreatedAt.After(*f.End) {
		return false
	}
	if len(f.CategoryIDs) > 0 {
		found := false
		for _, id := range f.CategoryIDs {
			if id == t.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.NamePrefix != "" && !strings.HasPrefix(t.Name, f.NamePrefix) {
		return false
	}
	if f.NameSuffix != "" && !strings.HasSuffix(t.Name, f.NameSuffix) {
		return false
	}
	if f.TaxType != nil {
		if m.Categories == nil {
			return false
		}
		c, ok := m.Categories.Categories[t.CategoryID]
		if !ok || c.TaxType != *f.TaxType {
			return false
		}
	}
	return true
}

// SetReceipt stores the receipt key on a transaction
func (m *MockTransactionRepository) SetReceipt(ctx context.Context, id int32, receiptPath *string, updatedAt time.Time) (*domain.Transaction, error) {
	if m.SetReceiptFn != nil {
		return m.SetReceiptFn(ctx, id, receiptPath, updatedAt)
	}
	t, ok := m.Transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	t.ReceiptPath = receiptPath
	t.UpdatedAt = updatedAt
	return t, nil
}

// AddTransaction adds a transaction to the mock repository (helper for tests)
func (m *MockTransactionRepository) AddTransaction(transaction *domain.Transaction) {
	m.Transactions[transaction.ID] = transaction
	if transaction.ID >= m.NextID {
		m.NextID = transaction.ID + 1
	}
}

// MockReportRepository is a mock implementation of domain.ReportRepository
// computed from the paired category and transaction mocks
type MockReportRepository struct {
	Categories   *MockCategoryRepository
	Transactions *MockTransactionRepository

	SumAfterTaxByCategoryFn func(ctx context.Context, period domain.Period) (domain.CategoryReport, error)
}

// NewMockReportRepository creates a new MockReportRepository
func NewMockReportRepository(categories *MockCategoryRepository, transactions *MockTransactionRepository) *MockReportRepository {
	return &MockReportRepository{Categories: categories, Transactions: transactions}
}

// SumAfterTaxByCategory groups after-tax sums in period by category name
func (m *MockReportRepository) SumAfterTaxByCategory(ctx context.Context, period domain.Period) (domain.CategoryReport, error) {
	if m.SumAfterTaxByCategoryFn != nil {
		return m.SumAfterTaxByCategoryFn(ctx, period)
	}
	report := make(domain.CategoryReport)
	for _, t := range m.Transactions.sorted() {
		if !period.Contains(t.CreatedAt) {
			continue
		}
		c, ok := m.Categories.Categories[t.CategoryID]
		if !ok {
			return nil, fmt.Errorf("transaction %d references missing category %d", t.ID, t.CategoryID)
		}
		total, ok := report[c.Name]
		if !ok {
			total = decimal.Zero
		}
		report[c.Name] = total.Add(t.SumAfterTax)
	}
	return report, nil
}

// MockObjectStore is an in-memory storage.ObjectStore
type MockObjectStore struct {
	Objects      map[string][]byte
	ContentTypes map[string]string
	mu           sync.Mutex

	UploadFn func(ctx context.Context, key string, data io.Reader, contentType string, size int64) (string, error)
	DeleteFn func(ctx context.Context, key string) error
}

// NewMockObjectStore creates a new MockObjectStore
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{
		Objects:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
	}
}

// Upload stores data under key
func (m *MockObjectStore) Upload(ctx context.Context, key string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, key, data, contentType, size)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = buf.Bytes()
	m.ContentTypes[key] = contentType
	return key, nil
}

// Delete removes key
func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, key)
	delete(m.ContentTypes, key)
	return nil
}

// PresignGet returns a fake URL for key
func (m *MockObjectStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s?expires=%d", key, int(expiry.Seconds())), nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	Events []event.Event
	mu     sync.Mutex
}

// Publish implements event.Publisher
func (m *MockEventPublisher) Publish(evt event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, evt)
}

// Types returns the recorded event types in publish order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}
