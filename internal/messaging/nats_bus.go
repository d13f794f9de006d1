package messaging

import (
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"

	"observability/internal/logging"
)

type NATSBus struct{ nc *nats.Conn }

// NewNATSBus connects to url. Disconnects and reconnects are logged; the
// connection keeps retrying in the background.
func NewNATSBus(url, name string, logger logging.Logger, opts ...nats.Option) (*NATSBus, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				logger.Errorf("NATS error on %s: %v", sub.Subject, err)
				return
			}
			logger.Errorf("NATS error: %v", err)
		}),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSBus{nc: nc}, nil
}

func (b *NATSBus) Subscribe(subject string, handler func([]byte)) (io.Closer, error) {
	sub, err := b.nc.Subscribe(subject, func(m *nats.Msg) { handler(m.Data) })
	if err != nil {
		return nil, err
	}
	return closerFunc(func() error { return sub.Unsubscribe() }), nil
}

// Close drains pending messages before closing the connection.
func (b *NATSBus) Close() error {
	return b.nc.Drain()
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }
