package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/clock"
)

// MemoryStore keeps all collections in process memory. It backs LOCAL_MODE
// and stands in for DynamoDB in tests. Every method returns copies.
type MemoryStore struct {
	mu          sync.Mutex
	products    map[string]*domain.Product
	orders      map[string]*domain.Order
	adjustments []*domain.StockAdjustment
	clock       clock.Clock
	notifier    events.Notifier
}

func NewMemoryStore(clk clock.Clock, notifier events.Notifier) *MemoryStore {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &MemoryStore{
		products: make(map[string]*domain.Product),
		orders:   make(map[string]*domain.Order),
		clock:    clk,
		notifier: notifier,
	}
}

func (s *MemoryStore) publish(c events.Collection, key string, op events.Op) {
	s.notifier.Publish(events.ChangeEvent{Collection: c, Key: key, Op: op, At: s.clock.Now()})
}

func (s *MemoryStore) CreateProduct(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	if _, exists := s.products[product.SKU]; exists {
		s.mu.Unlock()
		return domain.ErrProductExists
	}
	s.products[product.SKU] = copyProduct(product)
	s.mu.Unlock()

	s.publish(events.CollectionProducts, product.SKU, events.OpCreate)
	return nil
}

func (s *MemoryStore) GetProduct(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[sku]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (s *MemoryStore) FindProductsByName(_ context.Context, name string) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Product
	for _, p := range s.products {
		if p.Name == name {
			out = append(out, copyProduct(p))
		}
	}
	sortProductsBySKU(out)
	return out, nil
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, copyProduct(p))
	}
	sortProductsBySKU(out)
	return out, nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	current, ok := s.products[product.SKU]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrProductNotFound
	}
	current.Name = product.Name
	current.Price = product.Price
	current.Quantity = product.Quantity
	current.ReorderPoint = product.ReorderPoint
	current.UpdatedAt = s.clock.Now()
	updated := copyProduct(current)
	s.mu.Unlock()

	s.publish(events.CollectionProducts, product.SKU, events.OpUpdate)
	return updated, nil
}

func (s *MemoryStore) AdjustQuantity(_ context.Context, sku string, delta int) (*domain.QuantityChange, error) {
	s.mu.Lock()
	p, ok := s.products[sku]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrProductNotFound
	}
	change := &domain.QuantityChange{SKU: sku, PreviousStock: p.Quantity, NewStock: p.Quantity + delta}
	if change.NewStock < 0 {
		change.NewStock = p.Quantity
		s.mu.Unlock()
		return change, domain.ErrInsufficientStock
	}
	p.Quantity = change.NewStock
	p.UpdatedAt = s.clock.Now()
	s.mu.Unlock()

	s.publish(events.CollectionProducts, sku, events.OpUpdate)
	return change, nil
}

func (s *MemoryStore) ApplyAdjustment(_ context.Context, adj *domain.StockAdjustment, expectedQuantity int) (*domain.QuantityChange, error) {
	s.mu.Lock()
	p, ok := s.products[adj.ProductID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrProductNotFound
	}
	if p.Quantity != expectedQuantity {
		s.mu.Unlock()
		return nil, domain.ErrStockConflict
	}
	newQuantity := p.Quantity + adj.AdjustmentType.Delta(adj.Quantity)
	if newQuantity < 0 {
		s.mu.Unlock()
		return nil, domain.ErrInsufficientStock
	}

	change := &domain.QuantityChange{SKU: p.SKU, PreviousStock: p.Quantity, NewStock: newQuantity}
	p.Quantity = newQuantity
	p.UpdatedAt = s.clock.Now()
	stored := *adj
	s.adjustments = append(s.adjustments, &stored)
	s.mu.Unlock()

	s.publish(events.CollectionProducts, adj.ProductID, events.OpUpdate)
	s.publish(events.CollectionStockAdjustments, adj.ID, events.OpCreate)
	return change, nil
}

func (s *MemoryStore) ListAdjustments(_ context.Context) ([]*domain.StockAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.StockAdjustment, 0, len(s.adjustments))
	for _, a := range s.adjustments {
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	s.orders[order.ID] = copyOrder(order)
	s.mu.Unlock()

	s.publish(events.CollectionOrders, order.ID, events.OpCreate)
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *MemoryStore) ListOrders(_ context.Context) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *MemoryStore) MarkOrderFulfilled(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderStatusPending {
		s.mu.Unlock()
		return domain.ErrOrderAlreadyFulfilled
	}
	o.Status = domain.OrderStatusFulfilled
	fulfilledAt := at
	o.FulfilledAt = &fulfilledAt
	s.mu.Unlock()

	s.publish(events.CollectionOrders, id, events.OpUpdate)
	return nil
}

func (s *MemoryStore) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.orders[id]; !ok {
		s.mu.Unlock()
		return domain.ErrOrderNotFound
	}
	delete(s.orders, id)
	s.mu.Unlock()

	s.publish(events.CollectionOrders, id, events.OpDelete)
	return nil
}

func copyProduct(p *domain.Product) *domain.Product {
	c := *p
	if p.LastOrdered != nil {
		t := *p.LastOrdered
		c.LastOrdered = &t
	}
	return &c
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.ProductNames = append([]string(nil), o.ProductNames...)
	c.Items = append([]domain.OrderLine(nil), o.Items...)
	if o.FulfilledAt != nil {
		t := *o.FulfilledAt
		c.FulfilledAt = &t
	}
	return &c
}

func sortProductsBySKU(products []*domain.Product) {
	sort.Slice(products, func(i, j int) bool { return products[i].SKU < products[j].SKU })
}
