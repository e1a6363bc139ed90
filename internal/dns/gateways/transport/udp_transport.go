package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/tevino/abool"
	"golang.org/x/sync/semaphore"

	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/common/metrics"
)

const (
	// DefaultWorkers caps in-flight handlers when none is configured.
	DefaultWorkers = 256
	// maxPacketSize is the standard DNS UDP packet size limit.
	maxPacketSize = 512
)

// UDPTransport implements ServerTransport for DNS over UDP. Each datagram is
// handled on its own goroutine, but at most workers handlers run at once:
// the read loop waits for a free slot before reading on.
type UDPTransport struct {
	addr    string
	conn    *net.UDPConn
	logger  log.Logger
	workers *semaphore.Weighted

	mu      sync.Mutex
	running *abool.AtomicBool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewUDPTransport creates a new UDP transport instance. A non-positive
// workers value becomes DefaultWorkers.
func NewUDPTransport(addr string, workers int64, logger log.Logger) *UDPTransport {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &UDPTransport{
		addr:    addr,
		logger:  logger,
		workers: semaphore.NewWeighted(workers),
		running: abool.New(),
	}
}

// Start binds the UDP socket and starts the packet handling loop. The loop
// ends when ctx is cancelled or Stop is called.
func (t *UDPTransport) Start(ctx context.Context, handler PacketHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running.IsSet() {
		return fmt.Errorf("UDP transport already running")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", t.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP socket on %s: %w", t.addr, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.conn = conn
	t.cancel = cancel
	t.running.Set()

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   conn.LocalAddr().String(),
	}, "DNS transport started")

	// closing the socket is what unblocks ReadFromUDP
	go func() {
		<-loopCtx.Done()
		_ = conn.Close()
	}()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.listenLoop(loopCtx, conn, handler)
	}()
	return nil
}

// Stop closes the socket and waits for the read loop and every in-flight
// handler to return. Calling Stop on a stopped transport is a no-op.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running.SetToIf(true, false) {
		return nil
	}
	t.cancel()
	t.wg.Wait()

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   t.addr,
	}, "DNS transport stopped")
	return nil
}

// Address returns the bound address while running, else the configured one.
func (t *UDPTransport) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running.IsSet() && t.conn != nil {
		return t.conn.LocalAddr().String()
	}
	return t.addr
}

func (t *UDPTransport) listenLoop(ctx context.Context, conn *net.UDPConn, handler PacketHandler) {
	buffer := make([]byte, maxPacketSize)
	for {
		n, clientAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil {
				t.logger.Debug(nil, "UDP transport stopping due to context cancellation")
				return
			}
			t.logger.Warn(map[string]any{
				"error": err.Error(),
			}, "Failed to read UDP packet")
			continue
		}

		packet := make([]byte, n)
		copy(packet, buffer[:n])

		if err := t.workers.Acquire(ctx, 1); err != nil {
			metrics.DroppedPackets.Inc()
			return
		}
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			defer t.workers.Release(1)
			t.handlePacket(ctx, conn, packet, clientAddr, handler)
		}()
	}
}

// handlePacket runs the handler for one datagram and writes the reply. A
// panicking handler drops the packet; it never takes the server down.
func (t *UDPTransport) handlePacket(ctx context.Context, conn *net.UDPConn, data []byte, clientAddr *net.UDPAddr, handler PacketHandler) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DroppedPackets.Inc()
			t.logger.Error(map[string]any{
				"client": clientAddr.String(),
				"panic":  fmt.Sprint(r),
			}, "Recovered from panic while handling DNS packet")
		}
	}()

	t.logger.Debug(map[string]any{
		"client": clientAddr.String(),
		"size":   len(data),
		"raw":    fmt.Sprintf("%x", data),
	}, "Received raw DNS query data")

	response, err := handler.HandlePacket(ctx, data)
	if err != nil || response == nil {
		metrics.DroppedPackets.Inc()
		fields := map[string]any{
			"client": clientAddr.String(),
			"size":   len(data),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		t.logger.Warn(fields, "Dropping DNS packet")
		return
	}

	if _, err := conn.WriteToUDP(response, clientAddr); err != nil {
		t.logger.Error(map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
		}, "Failed to send DNS response")
		return
	}

	t.logger.Debug(map[string]any{
		"client": clientAddr.String(),
		"size":   len(response),
	}, "Sent DNS response")
}
