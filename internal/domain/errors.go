package domain

import "errors"

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrProductExists         = errors.New("product already exists")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderAlreadyFulfilled = errors.New("order already fulfilled")
	ErrStockConflict         = errors.New("stock changed concurrently")
)
