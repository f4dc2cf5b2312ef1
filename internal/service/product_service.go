package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/clock"
	"go.uber.org/zap"
)

type ProductService struct {
	productRepo ProductRepository
	changes     ChangeSource
	clock       clock.Clock
	logger      *zap.Logger
}

func NewProductService(productRepo ProductRepository, changes ChangeSource, clk clock.Clock, logger *zap.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		changes:     changes,
		clock:       clk,
		logger:      logger,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 중복 체크
	existing, err := s.productRepo.GetProduct(ctx, req.SKU)
	if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.DuplicateSKUError()
	}

	now := s.clock.Now()
	product := &domain.Product{
		SKU:          req.SKU,
		Name:         req.Name,
		Price:        req.Price,
		Quantity:     req.Quantity,
		ReorderPoint: req.ReorderPoint,
		LastOrdered:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.productRepo.CreateProduct(ctx, product); err != nil {
		// lost a race with another create for the same SKU
		if errors.Is(err, domain.ErrProductExists) {
			return nil, domain.DuplicateSKUError()
		}
		s.logger.Error("Failed to save product",
			zap.String("sku", product.SKU),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Product created successfully",
		zap.String("sku", product.SKU),
		zap.Int("initial_stock", product.Quantity))

	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	return s.productRepo.GetProduct(ctx, sku)
}

// UpdateProduct edits an existing product. The SKU is the storage key and
// cannot change.
func (s *ProductService) UpdateProduct(ctx context.Context, sku string, req domain.UpdateProductRequest) (*domain.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.productRepo.UpdateProduct(ctx, &domain.Product{
		SKU:          sku,
		Name:         req.Name,
		Price:        req.Price,
		Quantity:     req.Quantity,
		ReorderPoint: req.ReorderPoint,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			s.logger.Error("Failed to update product", zap.String("sku", sku), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Product updated successfully", zap.String("sku", sku))
	return updated, nil
}

// UpdateQuantity applies a signed delta to a product's stock. It fails with
// ErrProductNotFound or ErrInsufficientStock without writing anything.
func (s *ProductService) UpdateQuantity(ctx context.Context, sku string, delta int) (*domain.QuantityChange, error) {
	change, err := s.productRepo.AdjustQuantity(ctx, sku, delta)
	if err != nil {
		return change, err
	}

	s.logger.Info("Product quantity updated",
		zap.String("sku", sku),
		zap.Int("previous_stock", change.PreviousStock),
		zap.Int("delta", delta),
		zap.Int("new_stock", change.NewStock))
	return change, nil
}

func (s *ProductService) ListProducts(ctx context.Context, q domain.ListProductsQuery) ([]*domain.Product, error) {
	products, err := s.productRepo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return filterAndSortProducts(products, q), nil
}

// LowStockCount counts products at or below threshold, or at or below their
// own reorder point when threshold is zero.
func (s *ProductService) LowStockCount(ctx context.Context, threshold int) (int, error) {
	products, err := s.productRepo.ListProducts(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range products {
		if p.IsLowStockAt(threshold) {
			count++
		}
	}
	return count, nil
}

// Watch streams the product list, sorted by q, to fn on every change to the
// products collection.
func (s *ProductService) Watch(ctx context.Context, q domain.ListProductsQuery, fn func([]*domain.Product)) (StopFunc, error) {
	return watch(ctx, s.changes,
		[]events.Collection{events.CollectionProducts},
		func(ctx context.Context) ([]*domain.Product, error) { return s.ListProducts(ctx, q) },
		fn,
		s.logger)
}

func filterAndSortProducts(products []*domain.Product, q domain.ListProductsQuery) []*domain.Product {
	out := products
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		out = make([]*domain.Product, 0, len(products))
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), search) {
				out = append(out, p)
			}
		}
	}

	switch q.SortBy {
	case domain.SortByQuantity:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Quantity == out[j].Quantity {
				return out[i].Name < out[j].Name
			}
			return out[i].Quantity < out[j].Quantity
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Name == out[j].Name {
				return out[i].SKU < out[j].SKU
			}
			return out[i].Name < out[j].Name
		})
	}
	return out
}
