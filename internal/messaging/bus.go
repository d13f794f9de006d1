package messaging

import (
	"io"
)

// Bus is the subscription side of a message broker. Transfer events can be
// fed to the sidecar through any implementation, NATS being the one shipped.
type Bus interface {
	Subscribe(subject string, handler func([]byte)) (io.Closer, error)
	Close() error
}
