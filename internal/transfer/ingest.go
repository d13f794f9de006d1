package transfer

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"observability/internal/logging"
	"observability/internal/metrics"
)

// Result is the outcome of one ingestion.
type Result struct {
	Participant string
	Event       Event
	Duplicate   bool
}

// Ingestor is the single decode, dedupe and record path shared by the HTTP
// endpoint and the NATS subscription.
type Ingestor struct {
	participant string
	recorder    metrics.Recorder
	dedupe      *Deduplicator
	logger      logging.Logger
}

// NewIngestor wires the path. dedupe may be nil to count every event.
func NewIngestor(participant string, recorder metrics.Recorder, dedupe *Deduplicator, logger logging.Logger) *Ingestor {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Ingestor{
		participant: participant,
		recorder:    recorder,
		dedupe:      dedupe,
		logger:      logger,
	}
}

func (in *Ingestor) Participant() string { return in.participant }

func (in *Ingestor) Ingest(r io.Reader) (Result, error) {
	ev, err := Decode(r)
	if err != nil {
		in.recorder.RecordRejected(in.participant, metrics.ReasonMalformed)
		return Result{}, err
	}
	return in.Record(ev)
}

func (in *Ingestor) IngestBytes(body []byte) (Result, error) {
	ev, err := DecodeBytes(body)
	if err != nil {
		in.recorder.RecordRejected(in.participant, metrics.ReasonMalformed)
		return Result{}, err
	}
	return in.Record(ev)
}

// Record applies an already decoded event to the registry.
func (in *Ingestor) Record(ev Event) (Result, error) {
	res := Result{Participant: in.participant, Event: ev}

	if in.dedupe.Seen(ev) {
		in.recorder.RecordRejected(in.participant, metrics.ReasonDuplicate)
		in.logger.WithFields(logrus.Fields{
			"participant": in.participant,
			"event_id":    ev.EventID,
		}).Debug("Duplicate transfer event skipped")
		res.Duplicate = true
		return res, nil
	}

	if err := in.recorder.RecordTransfer(in.participant, ev.Status, ev.Duration); err != nil {
		return Result{}, fmt.Errorf("record transfer: %w", err)
	}

	in.logger.WithFields(logrus.Fields{
		"participant": in.participant,
		"status":      ev.Status,
		"duration":    ev.Duration,
	}).Debug("Transfer event recorded")
	return res, nil
}
