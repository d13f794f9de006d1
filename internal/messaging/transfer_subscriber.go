package messaging

import (
	"fmt"
	"io"

	"observability/internal/logging"
	"observability/internal/transfer"
)

// SubscribeTransfers feeds every message on subject through the ingestor.
// Bad messages are logged and counted by the ingestor; they never stop the
// subscription.
func SubscribeTransfers(bus Bus, subject string, ingestor *transfer.Ingestor, logger logging.Logger) (io.Closer, error) {
	closer, err := bus.Subscribe(subject, func(data []byte) {
		res, err := ingestor.IngestBytes(data)
		if err != nil {
			logger.Warnf("Dropped transfer message on %s: %v", subject, err)
			return
		}
		if res.Duplicate {
			logger.Debugf("Duplicate transfer message %s on %s", res.Event.EventID, subject)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	logger.Infof("Consuming transfer events from %s", subject)
	return closer, nil
}
