package service

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const unknownProductName = "Unknown Product"

// StockService handles manual stock adjustments and their audit log.
type StockService struct {
	productRepo    ProductRepository
	adjustmentRepo AdjustmentRepository
	clock          clock.Clock
	logger         *zap.Logger
}

func NewStockService(productRepo ProductRepository, adjustmentRepo AdjustmentRepository, clk clock.Clock, logger *zap.Logger) *StockService {
	return &StockService{
		productRepo:    productRepo,
		adjustmentRepo: adjustmentRepo,
		clock:          clk,
		logger:         logger,
	}
}

// AdjustStock adds or removes stock and appends the audit record. The
// quantity write and the audit append succeed or fail together.
func (s *StockService) AdjustStock(ctx context.Context, req domain.AdjustStockRequest) (*domain.StockAdjustmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	delta := req.AdjustmentType.Delta(req.Quantity)
	if delta > 0 && product.Quantity > math.MaxInt-delta {
		return nil, domain.NewValidationError("quantity", "Resulting stock is too large.")
	}
	if product.Quantity+delta < 0 {
		s.logger.Warn("Rejected stock adjustment below zero",
			zap.String("sku", product.SKU),
			zap.Int("current_stock", product.Quantity),
			zap.Int("delta", delta))
		return nil, domain.ErrInsufficientStock
	}

	name := product.Name
	if name == "" {
		name = unknownProductName
	}

	adj := &domain.StockAdjustment{
		ID:             uuid.NewString(),
		ProductID:      product.SKU,
		ProductName:    name,
		Quantity:       req.Quantity,
		AdjustmentType: req.AdjustmentType,
		Reason:         req.Reason,
		Date:           s.clock.Now(),
	}

	change, err := s.adjustmentRepo.ApplyAdjustment(ctx, adj, product.Quantity)
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientStock) && !errors.Is(err, domain.ErrProductNotFound) {
			s.logger.Error("Failed to apply stock adjustment",
				zap.String("sku", product.SKU),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Stock adjusted",
		zap.String("sku", product.SKU),
		zap.String("type", string(adj.AdjustmentType)),
		zap.Int("quantity", adj.Quantity),
		zap.Int("previous_stock", change.PreviousStock),
		zap.Int("new_stock", change.NewStock))

	return &domain.StockAdjustmentResult{
		Adjustment:    adj,
		PreviousStock: change.PreviousStock,
		NewStock:      change.NewStock,
	}, nil
}

// ListAdjustments returns the audit log, most recent first.
func (s *StockService) ListAdjustments(ctx context.Context) ([]*domain.StockAdjustment, error) {
	adjustments, err := s.adjustmentRepo.ListAdjustments(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(adjustments, func(i, j int) bool {
		return adjustments[i].Date.After(adjustments[j].Date)
	})
	return adjustments, nil
}
