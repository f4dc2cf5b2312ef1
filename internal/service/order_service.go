package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FulfillmentOptions selects how a fulfillment attempt reacts to bad lines.
type FulfillmentOptions struct {
	// AbortOnMissingProduct fails the attempt when a line's product cannot be
	// resolved. When false the line is logged and skipped.
	AbortOnMissingProduct bool
	// Compensate restores the decrements already applied by a failed attempt.
	// When false they are left in place.
	Compensate bool
}

type OrderService struct {
	orderRepo   OrderRepository
	productRepo ProductRepository
	quantities  QuantityUpdater
	opts        FulfillmentOptions
	clock       clock.Clock
	logger      *zap.Logger
}

func NewOrderService(
	orderRepo OrderRepository,
	productRepo ProductRepository,
	quantities QuantityUpdater,
	opts FulfillmentOptions,
	clk clock.Clock,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		quantities:  quantities,
		opts:        opts,
		clock:       clk,
		logger:      logger,
	}
}

// CreateOrder prices the requested items at their current unit price and
// stores a pending order with one line per unit.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	total := decimal.Zero
	var lines []domain.OrderLine
	for _, item := range req.Items {
		product, err := s.productRepo.GetProduct(ctx, item.SKU)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, item.SKU)
			}
			return nil, err
		}

		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		for i := 0; i < item.Quantity; i++ {
			lines = append(lines, domain.OrderLine{SKU: product.SKU, Name: product.Name})
		}
	}

	names := make([]string, 0, len(lines))
	for _, l := range lines {
		names = append(names, l.Name)
	}

	order := &domain.Order{
		ID:           uuid.NewString(),
		Customer:     req.Customer,
		ProductNames: names,
		Items:        lines,
		Total:        total.Round(2),
		Status:       domain.OrderStatusPending,
		Date:         s.clock.Now(),
	}

	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		s.logger.Error("Failed to save order",
			zap.String("customer", order.Customer),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int("units", len(lines)),
		zap.String("total", order.Total.StringFixed(2)))

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orderRepo.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, filter domain.StatusFilter) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if filter.Match(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

// RemoveOrder deletes the order record. Stock is not touched.
func (s *OrderService) RemoveOrder(ctx context.Context, id string) error {
	if err := s.orderRepo.DeleteOrder(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Error("Failed to remove order", zap.String("order_id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("Order removed", zap.String("order_id", id))
	return nil
}

// Fulfill decrements one unit of stock per order line, in order, and then
// marks the order fulfilled.
//
// A line whose product cannot be found is skipped, or aborts the attempt when
// AbortOnMissingProduct is set. A line without enough stock aborts the
// attempt. On abort the order stays pending and the decrements applied so far
// remain, unless Compensate is set. If another attempt marks the order
// fulfilled first, this attempt's decrements are always restored. The
// returned result is non-nil whenever the order was loaded, including on
// abort.
func (s *OrderService) Fulfill(ctx context.Context, orderID string) (*domain.FulfillmentResult, error) {
	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPending() {
		return nil, domain.ErrOrderAlreadyFulfilled
	}

	result := &domain.FulfillmentResult{
		OrderID:     order.ID,
		Status:      order.Status,
		Decremented: []domain.LineOutcome{},
	}

	for _, line := range order.Lines() {
		product, err := s.resolveProduct(ctx, line)
		if err == nil {
			var change *domain.QuantityChange
			change, err = s.quantities.UpdateQuantity(ctx, product.SKU, -1)
			if err == nil {
				result.Decremented = append(result.Decremented, domain.LineOutcome{
					SKU:           product.SKU,
					Name:          product.Name,
					PreviousStock: change.PreviousStock,
					NewStock:      change.NewStock,
				})
				continue
			}
		}

		switch {
		case errors.Is(err, domain.ErrProductNotFound) && !s.opts.AbortOnMissingProduct:
			s.logger.Error("Product not found, skipping line",
				zap.String("order_id", order.ID),
				zap.String("sku", line.SKU),
				zap.String("product_name", line.Name))
			result.Skipped = append(result.Skipped, line)
		case errors.Is(err, domain.ErrProductNotFound):
			return s.abort(ctx, result, fmt.Errorf("product %s: %w", lineLabel(line), err), s.opts.Compensate)
		case errors.Is(err, domain.ErrInsufficientStock):
			return s.abort(ctx, result, fmt.Errorf("not enough stock for product %s: %w", lineLabel(line), err), s.opts.Compensate)
		default:
			return s.abort(ctx, result, err, s.opts.Compensate)
		}
	}

	if err := s.orderRepo.MarkOrderFulfilled(ctx, order.ID, s.clock.Now()); err != nil {
		// a concurrent attempt already took stock for this order
		compensate := s.opts.Compensate || errors.Is(err, domain.ErrOrderAlreadyFulfilled)
		return s.abort(ctx, result, err, compensate)
	}
	result.Status = domain.OrderStatusFulfilled

	s.logger.Info("Order fulfilled and product stock updated",
		zap.String("order_id", order.ID),
		zap.Int("decremented", len(result.Decremented)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}

// resolveProduct finds the product for a line: by key when the line carries
// a SKU, otherwise by exact name.
func (s *OrderService) resolveProduct(ctx context.Context, line domain.OrderLine) (*domain.Product, error) {
	if line.SKU != "" {
		return s.productRepo.GetProduct(ctx, line.SKU)
	}

	matches, err := s.productRepo.FindProductsByName(ctx, line.Name)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, domain.ErrProductNotFound
	}
	if len(matches) > 1 {
		s.logger.Warn("Product name is ambiguous, using first match",
			zap.String("product_name", line.Name),
			zap.String("sku", matches[0].SKU),
			zap.Int("matches", len(matches)))
	}
	return matches[0], nil
}

func (s *OrderService) abort(ctx context.Context, result *domain.FulfillmentResult, cause error, compensate bool) (*domain.FulfillmentResult, error) {
	s.logger.Error("Error fulfilling order",
		zap.String("order_id", result.OrderID),
		zap.Int("decremented", len(result.Decremented)),
		zap.Bool("compensate", compensate),
		zap.Error(cause))

	if !compensate {
		return result, cause
	}

	for i := len(result.Decremented) - 1; i >= 0; i-- {
		line := result.Decremented[i]
		change, err := s.quantities.UpdateQuantity(ctx, line.SKU, 1)
		if err != nil {
			s.logger.Error("Failed to restore stock",
				zap.String("order_id", result.OrderID),
				zap.String("sku", line.SKU),
				zap.Error(err))
			continue
		}
		result.Compensated = append(result.Compensated, domain.LineOutcome{
			SKU:           line.SKU,
			Name:          line.Name,
			PreviousStock: change.PreviousStock,
			NewStock:      change.NewStock,
		})
	}
	return result, cause
}

func lineLabel(line domain.OrderLine) string {
	if line.Name != "" {
		return line.Name
	}
	return line.SKU
}
