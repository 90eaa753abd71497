// Package netcheck answers whether the citation databases are reachable.
package netcheck

import (
	"context"
	"net"
	"time"
)

// DialFunc opens a connection; it matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Probe checks reachability by opening a TCP connection to Address. An empty
// Address disables the check and always reports online.
type Probe struct {
	Address string
	Timeout time.Duration
	Dial    DialFunc
}

// New returns a Probe for address.
func New(address string, timeout time.Duration) *Probe {
	return &Probe{Address: address, Timeout: timeout}
}

// Online reports whether Address accepted a connection within Timeout.
func (p *Probe) Online(ctx context.Context) bool {
	if p == nil || p.Address == "" {
		return true
	}
	return p.Check(ctx) == nil
}

// Check dials Address and returns the dial error, if any.
func (p *Probe) Check(ctx context.Context) error {
	if p == nil || p.Address == "" {
		return nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dial := p.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	conn, err := dial(ctx, "tcp", p.Address)
	if err != nil {
		return err
	}
	return conn.Close()
}
