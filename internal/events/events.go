package events

import (
	"time"
)

type Collection string

const (
	CollectionProducts         Collection = "products"
	CollectionOrders           Collection = "orders"
	CollectionStockAdjustments Collection = "stockAdjustments"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent is emitted after a document write has been persisted.
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	Key        string     `json:"key"`
	Op         Op         `json:"op"`
	At         time.Time  `json:"at"`
}

// Notifier receives change events from the stores.
type Notifier interface {
	Publish(event ChangeEvent)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Publish(ChangeEvent) {}

// 외부 시스템이 주문 이행을 요청할 때 보내는 이벤트
type FulfillmentRequestedEvent struct {
	EventID   string    `json:"event_id"`
	OrderID   string    `json:"order_id"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// 주문 이행 실패 이벤트
type FulfillmentFailedEvent struct {
	EventID   string    `json:"event_id"`
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
