package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	LabelParticipant = "participant"
	LabelStatus      = "status"
	LabelReason      = "reason"

	ReasonMalformed = "malformed"
	ReasonDuplicate = "duplicate"
)

// Options are fixed at construction; bucket bounds never change afterwards.
type Options struct {
	Namespace         string
	LatencyBuckets    []float64
	RuntimeCollectors bool
	// ErrorLog receives exposition errors, e.g. a *logrus.Logger.
	ErrorLog promhttp.Logger
}

// Registry is the single metric registry of a sidecar process. All update
// methods are safe for concurrent use; synchronisation is left to the
// client_golang vectors.
type Registry struct {
	reg      *prometheus.Registry
	errorLog promhttp.Logger

	Transfers       *prometheus.CounterVec
	TransferLatency *prometheus.HistogramVec
	Ready           *prometheus.GaugeVec
	Rejected        *prometheus.CounterVec
}

func NewRegistry(opts Options) *Registry {
	buckets := opts.LatencyBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	buckets = append([]float64(nil), buckets...)

	reg := prometheus.NewRegistry()
	r := &Registry{
		reg:      reg,
		errorLog: opts.ErrorLog,
		Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "transfers_total",
			Help:      "Transfers (business)",
		}, []string{LabelParticipant, LabelStatus}),
		TransferLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "transfer_latency_seconds",
			Help:      "Transfer latency (s)",
			Buckets:   buckets,
		}, []string{LabelParticipant}),
		Ready: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "ready",
			Help:      "Readiness",
		}, []string{LabelParticipant}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "transfer_events_rejected_total",
			Help:      "Transfer events refused at ingestion",
		}, []string{LabelParticipant, LabelReason}),
	}
	reg.MustRegister(r.Transfers, r.TransferLatency, r.Ready, r.Rejected)
	if opts.RuntimeCollectors {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Handler serves the current registry state in the exposition format
// negotiated with the scraper.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		ErrorLog:      r.errorLog,
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// RecordTransfer counts one transfer and observes its duration. Both series
// are resolved before either is touched so a bad label leaves no partial update.
func (r *Registry) RecordTransfer(participant, status string, seconds float64) error {
	counter, err := r.Transfers.GetMetricWithLabelValues(participant, status)
	if err != nil {
		return fmt.Errorf("transfers_total labels: %w", err)
	}
	hist, err := r.TransferLatency.GetMetricWithLabelValues(participant)
	if err != nil {
		return fmt.Errorf("transfer_latency_seconds labels: %w", err)
	}
	counter.Inc()
	hist.Observe(seconds)
	return nil
}

// SetReady marks the participant ready. There is no way back to not-ready.
func (r *Registry) SetReady(participant string) error {
	g, err := r.Ready.GetMetricWithLabelValues(participant)
	if err != nil {
		return fmt.Errorf("ready labels: %w", err)
	}
	g.Set(1)
	return nil
}

func (r *Registry) RecordRejected(participant, reason string) {
	if c, err := r.Rejected.GetMetricWithLabelValues(participant, reason); err == nil {
		c.Inc()
	}
}
