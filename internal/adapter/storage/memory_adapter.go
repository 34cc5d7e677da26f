package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/restocklabs/restock-dispatch/internal/core/domain"
)

// stockEntry gives each product its own lock, so the check-and-decrement
// for one product is serialized without stalling unrelated products.
type stockEntry struct {
	mu  sync.Mutex
	rec domain.StockRecord
}

// MemoryAdapter is an in-memory implementation of all engine stores. It is
// the default backend of the server binary and the workhorse of the tests.
type MemoryAdapter struct {
	mu         sync.RWMutex
	products   map[int64]domain.Product
	stocks     map[int64]*stockEntry
	subs       map[int64][]domain.Subscription
	runs       map[string]domain.DispatchRun
	deliveries []domain.DeliveryRecord
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		products: make(map[int64]domain.Product),
		stocks:   make(map[int64]*stockEntry),
		subs:     make(map[int64][]domain.Subscription),
		runs:     make(map[string]domain.DispatchRun),
	}
}

func (m *MemoryAdapter) GetProduct(_ context.Context, productID int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryAdapter) SaveProduct(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = *product
	return nil
}

func (m *MemoryAdapter) GetStock(_ context.Context, productID int64, _ bool) (*domain.StockRecord, error) {
	m.mu.RLock()
	entry, ok := m.stocks[productID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	rec := entry.rec
	return &rec, nil
}

func (m *MemoryAdapter) DecrementIfAvailable(_ context.Context, productID int64, quantity int) (bool, error) {
	m.mu.RLock()
	entry, ok := m.stocks[productID]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.rec.Quantity < quantity {
		return false, nil
	}
	entry.rec.Quantity -= quantity
	entry.rec.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryAdapter) IncreaseStock(_ context.Context, productID int64, quantity int) error {
	m.mu.RLock()
	entry, ok := m.stocks[productID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no stock record for product %d", productID)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.rec.Quantity += quantity
	entry.rec.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryAdapter) ActiveUserIDs(_ context.Context, productID int64) ([]int64, error) {
	return m.activeUserIDsAfter(productID, nil), nil
}

func (m *MemoryAdapter) ActiveUserIDsAfter(_ context.Context, productID int64, afterUserID int64) ([]int64, error) {
	return m.activeUserIDsAfter(productID, &afterUserID), nil
}

func (m *MemoryAdapter) activeUserIDsAfter(productID int64, after *int64) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for _, sub := range m.subs[productID] {
		if !sub.Active {
			continue
		}
		if after != nil && sub.UserID <= *after {
			continue
		}
		ids = append(ids, sub.UserID)
	}
	slices.Sort(ids)
	return ids
}

func (m *MemoryAdapter) LatestRun(_ context.Context, productID int64) (*domain.DispatchRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.DispatchRun
	for id := range m.runs {
		run := m.runs[id]
		if run.ProductID != productID {
			continue
		}
		if latest == nil || run.RestockRound > latest.RestockRound {
			r := run
			latest = &r
		}
	}
	return latest, nil
}

func (m *MemoryAdapter) SaveRun(_ context.Context, run *domain.DispatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *run
	if run.LastNotifiedUserID != nil {
		uid := *run.LastNotifiedUserID
		saved.LastNotifiedUserID = &uid
	}
	m.runs[run.ID] = saved
	return nil
}

func (m *MemoryAdapter) SaveDelivery(_ context.Context, record *domain.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, *record)
	return nil
}

// Seed helpers for the memory backend and tests.

func (m *MemoryAdapter) SeedProduct(product domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
}

func (m *MemoryAdapter) SeedStock(productID int64, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stocks[productID] = &stockEntry{rec: domain.StockRecord{
		ProductID: productID,
		Quantity:  quantity,
		UpdatedAt: time.Now(),
	}}
}

func (m *MemoryAdapter) SeedSubscription(sub domain.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ProductID] = append(m.subs[sub.ProductID], sub)
}

// Deliveries returns a copy of the delivery records for a product.
func (m *MemoryAdapter) Deliveries(productID int64) []domain.DeliveryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.DeliveryRecord
	for _, d := range m.deliveries {
		if d.ProductID == productID {
			out = append(out, d)
		}
	}
	return out
}
