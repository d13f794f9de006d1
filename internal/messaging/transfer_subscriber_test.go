package messaging

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"observability/internal/logging"
	"observability/internal/metrics"
	"observability/internal/transfer"
)

type memoryBus struct {
	mu       sync.Mutex
	handlers map[string]func([]byte)
	failSub  bool
}

func newMemoryBus() *memoryBus {
	return &memoryBus{handlers: make(map[string]func([]byte))}
}

func (b *memoryBus) Subscribe(subject string, handler func([]byte)) (io.Closer, error) {
	if b.failSub {
		return nil, errors.New("broker unavailable")
	}
	b.mu.Lock()
	b.handlers[subject] = handler
	b.mu.Unlock()
	return closerFunc(func() error {
		b.mu.Lock()
		delete(b.handlers, subject)
		b.mu.Unlock()
		return nil
	}), nil
}

func (b *memoryBus) Close() error { return nil }

func (b *memoryBus) publish(subject string, data []byte) {
	b.mu.Lock()
	h := b.handlers[subject]
	b.mu.Unlock()
	if h != nil {
		h(data)
	}
}

func TestSubscribeTransfersRecordsEvents(t *testing.T) {
	reg := metrics.NewRegistry(metrics.Options{Namespace: "dataspace"})
	logger := logging.NewDiscardLogger()
	dd, err := transfer.NewDeduplicator(16)
	require.NoError(t, err)
	ingestor := transfer.NewIngestor("p1", reg, dd, logger)

	bus := newMemoryBus()
	closer, err := SubscribeTransfers(bus, "dataspace.events.transfer", ingestor, logger)
	require.NoError(t, err)

	bus.publish("dataspace.events.transfer", []byte(`{"status":"SUCCESS","duration":1.1}`))
	bus.publish("dataspace.events.transfer", []byte(`{"status":"FAILED","duration":3,"event_id":"e1"}`))
	bus.publish("dataspace.events.transfer", []byte(`{"status":"FAILED","duration":3,"event_id":"e1"}`))
	bus.publish("dataspace.events.transfer", []byte(`garbage`))
	bus.publish("other.subject", []byte(`{}`))

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Transfers.WithLabelValues("p1", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Transfers.WithLabelValues("p1", "FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Rejected.WithLabelValues("p1", metrics.ReasonDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Rejected.WithLabelValues("p1", metrics.ReasonMalformed)))

	require.NoError(t, closer.Close())
	bus.publish("dataspace.events.transfer", []byte(`{"status":"SUCCESS"}`))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Transfers.WithLabelValues("p1", "SUCCESS")))
}

func TestSubscribeTransfersPropagatesError(t *testing.T) {
	reg := metrics.NewRegistry(metrics.Options{Namespace: "dataspace"})
	logger := logging.NewDiscardLogger()
	bus := newMemoryBus()
	bus.failSub = true

	_, err := SubscribeTransfers(bus, "x", transfer.NewIngestor("p1", reg, nil, logger), logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscribe x")
}
