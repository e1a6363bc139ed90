// Package upstream exchanges raw DNS messages with the single configured
// forwarder over UDP.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

// Error message constants for consistent error handling
const (
	errNoServerProvided = "no upstream DNS server provided"
	errFailedToConnect  = "failed to connect to %s: %w"
	errWriteFailed      = "write failed: %w"
	errReadFailed       = "read failed: %w"
	errQueryTimeout     = "query to %s timed out after %v"
)

const (
	// DefaultPort is appended to an upstream given without a port.
	DefaultPort = 53
	// DefaultTimeout bounds one exchange when the caller's context has no deadline.
	DefaultTimeout = 2 * time.Second
	// maxMessageSize is the classic UDP DNS payload limit.
	maxMessageSize = 512
)

// DialFunc establishes a network connection. Tests inject their own.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Options configures a Client.
type Options struct {
	// required parameters
	Server  string
	Timeout time.Duration
	// options to inject for testing purposes
	Dial DialFunc
}

// Client sends one query per exchange to the upstream server. There is no
// retry and no failover.
type Client struct {
	server  string
	timeout time.Duration
	dial    DialFunc
}

// NewClient creates a Client. A server without a port gets port 53, a
// non-positive timeout becomes DefaultTimeout.
func NewClient(opts Options) (*Client, error) {
	if opts.Server == "" {
		return nil, errors.New(errNoServerProvided)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	return &Client{
		server:  withDefaultPort(opts.Server),
		timeout: opts.Timeout,
		dial:    opts.Dial,
	}, nil
}

func withDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, strconv.Itoa(DefaultPort))
}

// Server returns the host:port the client talks to.
func (c *Client) Server() string {
	return c.server
}

// ensureContextDeadline adds the client timeout when ctx has no deadline of its own.
func (c *Client) ensureContextDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, nil
}

// Exchange writes query to the upstream and returns the first datagram read
// back. Every failure, including the timeout, wraps domain.ErrResolution.
func (c *Client) Exchange(ctx context.Context, query []byte) ([]byte, error) {
	ctx, cancel := c.ensureContextDeadline(ctx)
	if cancel != nil {
		defer cancel()
	}

	conn, err := c.dial(ctx, "udp", c.server)
	if err != nil {
		return nil, fmt.Errorf("%w: "+errFailedToConnect, domain.ErrResolution, c.server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	type result struct {
		reply []byte
		err   error
	}
	resultChan := make(chan result, 1)

	go func() {
		if _, err := conn.Write(query); err != nil {
			resultChan <- result{err: fmt.Errorf(errWriteFailed, err)}
			return
		}
		buffer := make([]byte, maxMessageSize)
		n, err := conn.Read(buffer)
		if err != nil {
			resultChan <- result{err: fmt.Errorf(errReadFailed, err)}
			return
		}
		resultChan <- result{reply: buffer[:n]}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrResolution, c.server, res.err)
		}
		return res.reply, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: "+errQueryTimeout+": %w", domain.ErrResolution, c.server, c.timeout, ctx.Err())
	}
}
