package transport

import (
	"fmt"

	"github.com/haukened/zonefwd/internal/dns/common/log"
)

// NewTransport creates a transport of the given type.
func NewTransport(transportType TransportType, addr string, workers int64, logger log.Logger) (ServerTransport, error) {
	switch transportType {
	case TransportUDP:
		return NewUDPTransport(addr, workers, logger), nil

	case TransportTCP:
		return nil, fmt.Errorf("DNS over TCP transport not supported")

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}
