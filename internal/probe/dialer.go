package probe

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultConnectTimeout = 15 * time.Second

// IPGate reports whether a source IP is currently gated for a domain.
// Satisfied by guard.IPHealth.
type IPGate interface {
	IsBlocked(ctx context.Context, ip, domain string) bool
}

// DialFunc opens the transport. localIP selects the source address;
// empty means the default route.
type DialFunc func(ctx context.Context, localIP, address string) (net.Conn, error)

// Dialer opens probe connections, binding the source address from a
// configured IP pool. Callers can pin a pool slot per request; otherwise
// slots rotate round-robin. Gated IPs are skipped, and when the whole pool
// is gated for a domain the dialer falls back to the default route.
type Dialer struct {
	pool    []string
	gate    IPGate
	dial    DialFunc
	log     *zap.Logger
	counter uint64
}

func NewDialer(pool []string, timeout time.Duration, gate IPGate, logger *zap.Logger) *Dialer {
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	return &Dialer{
		pool: pool,
		gate: gate,
		dial: transportDial(timeout),
		log:  logger.Named("dialer"),
	}
}

func transportDial(timeout time.Duration) DialFunc {
	return func(ctx context.Context, localIP, address string) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		if localIP != "" {
			ip := net.ParseIP(localIP)
			if ip == nil {
				return nil, fmt.Errorf("invalid pool ip %q", localIP)
			}
			d.LocalAddr = &net.TCPAddr{IP: ip}
		}
		return d.DialContext(ctx, "tcp", address)
	}
}

// Dial connects to address for a probe against domain. It returns the
// connection and the pool IP it was bound to ("" when the default route
// was used).
func (d *Dialer) Dial(ctx context.Context, domain, address string, ipIndex *int) (net.Conn, string, error) {
	ip := d.pick(ctx, domain, ipIndex)

	conn, err := d.dial(ctx, ip, address)
	if err != nil && ip != "" {
		// A bound dial fails when the pool IP is not configured on this
		// host; the default route still gives us a usable probe.
		d.log.Warn("bound dial failed, retrying on default route",
			zap.String("ip", ip),
			zap.String("address", address),
			zap.Error(err))
		ip = ""
		conn, err = d.dial(ctx, ip, address)
	}
	if err != nil {
		return nil, "", err
	}
	return conn, ip, nil
}

// pick chooses the source IP for this probe. An explicit ipIndex pins the
// starting slot; otherwise slots rotate. The first non-gated IP from the
// starting slot wins.
func (d *Dialer) pick(ctx context.Context, domain string, ipIndex *int) string {
	n := len(d.pool)
	if n == 0 {
		return ""
	}

	var start int
	if ipIndex != nil {
		start = ((*ipIndex % n) + n) % n
	} else {
		start = int((atomic.AddUint64(&d.counter, 1) - 1) % uint64(n))
	}

	for i := 0; i < n; i++ {
		ip := d.pool[(start+i)%n]
		if d.gate == nil || !d.gate.IsBlocked(ctx, ip, domain) {
			return ip
		}
	}

	d.log.Warn("all pool ips gated for domain, using default route",
		zap.String("domain", domain))
	return ""
}
