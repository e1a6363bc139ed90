// Package transport receives DNS datagrams from the network and hands the raw
// bytes to a PacketHandler. It owns sockets and concurrency, never DNS logic.
package transport

import (
	"context"
)

// ServerTransport is a listening DNS transport.
type ServerTransport interface {
	// Start binds the listener and begins dispatching packets to handler.
	Start(ctx context.Context, handler PacketHandler) error

	// Stop closes the listener and waits for in-flight handlers to finish.
	Stop() error

	// Address returns the bound address, or the configured one before Start.
	Address() string
}

// PacketHandler turns one request datagram into one response datagram. A nil
// response or an error means the request is dropped without a reply.
type PacketHandler interface {
	HandlePacket(ctx context.Context, packet []byte) ([]byte, error)
}

// PacketHandlerFunc adapts a function to PacketHandler.
type PacketHandlerFunc func(ctx context.Context, packet []byte) ([]byte, error)

// HandlePacket calls f(ctx, packet).
func (f PacketHandlerFunc) HandlePacket(ctx context.Context, packet []byte) ([]byte, error) {
	return f(ctx, packet)
}

// TransportType names a transport protocol.
type TransportType string

const (
	// TransportUDP is standard DNS over UDP (RFC 1035).
	TransportUDP TransportType = "udp"

	// TransportTCP is DNS over TCP, not supported.
	TransportTCP TransportType = "tcp"
)
