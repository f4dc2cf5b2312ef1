package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	messages chan kafka.Message

	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{messages: make(chan kafka.Message, 8)}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg := <-r.messages:
		return msg, nil
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeFulfiller struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error
}

func (f *fakeFulfiller) Fulfill(_ context.Context, orderID string) (*domain.FulfillmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, orderID)
	if err := f.errs[orderID]; err != nil {
		return nil, err
	}
	return &domain.FulfillmentResult{OrderID: orderID, Status: domain.OrderStatusFulfilled}, nil
}

type recordedFailure struct {
	orderID, requestID, reason string
}

type fakeFailures struct {
	mu       sync.Mutex
	failures []recordedFailure
}

func (f *fakeFailures) PublishFulfillmentFailed(_ context.Context, orderID, requestID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, recordedFailure{orderID, requestID, reason})
	return nil
}

func requestMessage(t *testing.T, orderID string, offset int64) kafka.Message {
	t.Helper()
	value, err := json.Marshal(FulfillmentRequestedEvent{
		EventID:   "evt-" + orderID,
		OrderID:   orderID,
		RequestID: "req-" + orderID,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return kafka.Message{Topic: "fulfillment-requests", Offset: offset, Value: value}
}

func TestKafkaConsumer_ProcessMessage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{name: "fulfilled"},
		{name: "insufficient stock", err: fmt.Errorf("not enough stock for product Widget: %w", domain.ErrInsufficientStock), wantReason: "stock_insufficient"},
		{name: "missing product", err: domain.ErrProductNotFound, wantReason: "product_not_found"},
		{name: "missing order", err: domain.ErrOrderNotFound, wantReason: "order_not_found"},
		{name: "already fulfilled", err: domain.ErrOrderAlreadyFulfilled, wantReason: "order_already_fulfilled"},
		{name: "store failure", err: errors.New("connection reset"), wantReason: "store_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fulfiller := &fakeFulfiller{errs: map[string]error{"o-1": tt.err}}
			failures := &fakeFailures{}
			kc := newKafkaConsumer(newFakeReader(), fulfiller, zap.NewNop())
			kc.SetFailurePublisher(failures)
			defer kc.Stop()

			kc.processMessage(ctx, requestMessage(t, "o-1", 0))

			if tt.wantReason == "" {
				assert.Empty(t, failures.failures)
				return
			}
			require.Len(t, failures.failures, 1)
			assert.Equal(t, recordedFailure{"o-1", "req-o-1", tt.wantReason}, failures.failures[0])
		})
	}
}

func TestKafkaConsumer_DiscardsMalformedMessages(t *testing.T) {
	fulfiller := &fakeFulfiller{}
	kc := newKafkaConsumer(newFakeReader(), fulfiller, zap.NewNop())
	defer kc.Stop()

	kc.processMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Empty(t, fulfiller.calls)
}

func TestKafkaConsumer_StartCommitsHandledMessages(t *testing.T) {
	reader := newFakeReader()
	fulfiller := &fakeFulfiller{errs: map[string]error{"o-3": errors.New("timeout")}}
	failures := &fakeFailures{}
	kc := newKafkaConsumer(reader, fulfiller, zap.NewNop())
	kc.SetFailurePublisher(failures)

	reader.messages <- requestMessage(t, "o-1", 1)
	reader.messages <- requestMessage(t, "o-3", 2)
	reader.messages <- requestMessage(t, "o-2", 3)

	kc.Start()
	require.Eventually(t, func() bool { return reader.commitCount() == 3 }, time.Second, 5*time.Millisecond)
	kc.Stop()

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.True(t, reader.closed)
	require.Len(t, reader.committed, 3)
	assert.Equal(t, int64(1), reader.committed[0].Offset)
	assert.Equal(t, int64(2), reader.committed[1].Offset)
	assert.Equal(t, int64(3), reader.committed[2].Offset)

	failures.mu.Lock()
	defer failures.mu.Unlock()
	assert.Equal(t, []recordedFailure{{"o-3", "req-o-3", "store_error"}}, failures.failures)
}

func TestKafkaConsumer_StopWithoutStart(t *testing.T) {
	kc := newKafkaConsumer(newFakeReader(), &fakeFulfiller{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		kc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without Start")
	}
}
