package transfer

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"observability/internal/logging"
	"observability/internal/metrics"
)

func newTestIngestor(t *testing.T, dedupeSize int) (*Ingestor, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry(metrics.Options{Namespace: "dataspace"})
	var dd *Deduplicator
	if dedupeSize > 0 {
		var err error
		dd, err = NewDeduplicator(dedupeSize)
		require.NoError(t, err)
	}
	return NewIngestor("p1", reg, dd, logging.NewDiscardLogger()), reg
}

func TestIngestRecordsCounterAndHistogram(t *testing.T) {
	in, reg := newTestIngestor(t, 0)

	res, err := in.Ingest(strings.NewReader(`{"status":"FAILED","duration":2.3}`))
	require.NoError(t, err)
	assert.Equal(t, "p1", res.Participant)
	assert.Equal(t, "FAILED", res.Event.Status)
	assert.Equal(t, 2.3, res.Event.Duration)
	assert.False(t, res.Duplicate)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Transfers.WithLabelValues("p1", "FAILED")))
	assert.Equal(t, 1, testutil.CollectAndCount(reg.TransferLatency))
}

func TestIngestMalformedRecordsNothing(t *testing.T) {
	in, reg := newTestIngestor(t, 0)

	_, err := in.IngestBytes([]byte(`{"status":`))
	require.ErrorIs(t, err, ErrMalformedEvent)

	assert.Equal(t, 0, testutil.CollectAndCount(reg.Transfers))
	assert.Equal(t, 0, testutil.CollectAndCount(reg.TransferLatency))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Rejected.WithLabelValues("p1", metrics.ReasonMalformed)))
}

func TestIngestDuplicateEventID(t *testing.T) {
	in, reg := newTestIngestor(t, 8)

	first, err := in.IngestBytes([]byte(`{"event_id":"tx-1","status":"SUCCESS"}`))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := in.IngestBytes([]byte(`{"event_id":"tx-1","status":"SUCCESS"}`))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	// events without an id are always counted
	for i := 0; i < 3; i++ {
		_, err := in.IngestBytes([]byte(`{"status":"SUCCESS"}`))
		require.NoError(t, err)
	}

	assert.Equal(t, 4.0, testutil.ToFloat64(reg.Transfers.WithLabelValues("p1", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Rejected.WithLabelValues("p1", metrics.ReasonDuplicate)))
}

func TestDeduplicatorEvictsOldest(t *testing.T) {
	dd, err := NewDeduplicator(2)
	require.NoError(t, err)

	assert.False(t, dd.Seen(Event{EventID: "a"}))
	assert.False(t, dd.Seen(Event{EventID: "b"}))
	assert.False(t, dd.Seen(Event{EventID: "c"}))
	assert.Equal(t, 2, dd.Len())
	// "a" was evicted by "c"
	assert.False(t, dd.Seen(Event{EventID: "a"}))
	assert.True(t, dd.Seen(Event{EventID: "c"}))
}

func TestNilDeduplicatorAcceptsAll(t *testing.T) {
	var dd *Deduplicator
	assert.False(t, dd.Seen(Event{EventID: "a"}))
	assert.False(t, dd.Seen(Event{EventID: "a"}))
	assert.Equal(t, 0, dd.Len())

	_, err := NewDeduplicator(0)
	assert.Error(t, err)
}

func TestIngestConcurrent(t *testing.T) {
	in, reg := newTestIngestor(t, 0)

	const workers, perWorker = 16, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := in.IngestBytes([]byte(`{"status":"SUCCESS","duration":0.1}`))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(workers*perWorker), testutil.ToFloat64(reg.Transfers.WithLabelValues("p1", "SUCCESS")))
}
