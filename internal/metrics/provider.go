package metrics

// Recorder is what the ingestion paths need from the registry.
type Recorder interface {
	RecordTransfer(participant, status string, seconds float64) error
	SetReady(participant string) error
	RecordRejected(participant, reason string)
}

var _ Recorder = (*Registry)(nil)
