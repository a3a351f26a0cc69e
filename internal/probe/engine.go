package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/classify"
	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

// ErrNoMX means the domain cannot receive mail at all. Callers map it to an
// invalid verdict rather than a probe failure.
var ErrNoMX = errors.New("no mx records")

const (
	defaultSessionTimeout = 15 * time.Second
	defaultProbePause     = 80 * time.Millisecond
	defaultHeloDomain     = "jumpingfox.io"
	defaultMailFrom       = "verify@jumpingfox.io"

	// Prevents large providers from seeing a burst of parallel port-25
	// connections from one host.
	maxConcurrentSessions = 15

	fakeLocalLength   = 12
	fakeLocalAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// DNS is the resolver surface the engine needs. Satisfied by lookup.Analyzer.
type DNS interface {
	Primary(ctx context.Context, domain string) (string, bool)
	SPF(ctx context.Context, domain string) models.SPFSignal
}

// IPMarker records delivery trouble against a pool IP. Satisfied by
// guard.IPHealth.
type IPMarker interface {
	MarkBounce(ctx context.Context, ip, domain string) error
	MarkBlacklist(ctx context.Context, ip, domain string) error
}

type Config struct {
	Timeout    time.Duration
	Pause      time.Duration
	HeloDomain string
	MailFrom   string
}

// Engine runs the catch-all probe: one real RCPT and two random fakes over
// a single SMTP connection, producing the signal set the scorer fuses.
type Engine struct {
	dns    DNS
	dialer *Dialer
	marker IPMarker
	cfg    Config
	sem    chan struct{}
	log    *zap.Logger
}

// NewEngine wires the probe engine. marker may be nil when no IP pool is
// configured.
func NewEngine(dns DNS, dialer *Dialer, marker IPMarker, cfg Config, logger *zap.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSessionTimeout
	}
	if cfg.Pause <= 0 {
		cfg.Pause = defaultProbePause
	}
	if cfg.HeloDomain == "" {
		cfg.HeloDomain = defaultHeloDomain
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = defaultMailFrom
	}
	return &Engine{
		dns:    dns,
		dialer: dialer,
		marker: marker,
		cfg:    cfg,
		sem:    make(chan struct{}, maxConcurrentSessions),
		log:    logger.Named("probe"),
	}
}

// Verify probes one address. Returns ErrNoMX when the domain has no MX;
// any other error is a probe failure (connect, timeout, protocol) and the
// caller decides what that means. Reply codes are never errors here: a 550
// on the real RCPT is a signal, not a failure.
func (e *Engine) Verify(ctx context.Context, email string, ipIndex *int) (*models.Signals, error) {
	_, domain := classify.Split(email)

	mxHost, ok := e.dns.Primary(ctx, domain)
	if !ok {
		return nil, ErrNoMX
	}
	spf := e.dns.SPF(ctx, domain)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.sem }()

	conn, srcIP, err := e.dialer.Dial(ctx, domain, net.JoinHostPort(mxHost, "25"), ipIndex)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", mxHost, err)
	}

	// The whole conversation shares one deadline; the context may be
	// tighter than the configured session timeout.
	deadline := time.Now().Add(e.cfg.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	sess, err := newSession(conn, deadline)
	if err != nil {
		conn.Close()
		e.noteError(ctx, srcIP, domain, err)
		return nil, err
	}
	defer sess.quit()

	e.log.Debug("probing",
		zap.String("email", email),
		zap.String("mx", mxHost),
		zap.String("source_ip", srcIP))

	mta := FingerprintBanner(sess.banner)

	if err := sess.hello(e.cfg.HeloDomain); err != nil {
		e.noteError(ctx, srcIP, domain, err)
		return nil, err
	}
	if err := sess.mailFrom(e.cfg.MailFrom); err != nil {
		e.noteError(ctx, srcIP, domain, err)
		return nil, err
	}

	realCode, realMsg, realElapsed, err := sess.rcpt(email)
	if err != nil {
		return nil, fmt.Errorf("real rcpt: %w", err)
	}
	e.noteReply(ctx, srcIP, domain, realCode, realMsg)

	var (
		fakeRejected bool
		fakeCodes    = make([]int, 0, 2)
		fakeMs       = make([]float64, 0, 2)
		fakeTimesMs  = make([]int64, 0, 2)
	)

	for i := 0; i < 2; i++ {
		if err := sess.reset(); err != nil {
			return nil, err
		}
		if err := sess.mailFrom(e.cfg.MailFrom); err != nil {
			e.noteError(ctx, srcIP, domain, err)
			return nil, err
		}
		if err := e.pause(ctx); err != nil {
			return nil, err
		}

		code, msg, elapsed, err := sess.rcpt(randomLocal() + "@" + domain)
		if err != nil {
			return nil, fmt.Errorf("fake rcpt %d: %w", i+1, err)
		}
		e.noteReply(ctx, srcIP, domain, code, msg)

		// Only the first fake carries the rejection signal; by the second
		// some MTAs have started tarpitting or greylisting us.
		if i == 0 && code != 250 {
			fakeRejected = true
		}
		fakeCodes = append(fakeCodes, code)
		fakeMs = append(fakeMs, float64(elapsed.Microseconds())/1000.0)
		fakeTimesMs = append(fakeTimesMs, elapsed.Milliseconds())
	}

	realMs := float64(realElapsed.Microseconds()) / 1000.0

	return &models.Signals{
		MTA:          mta,
		FakeRejected: fakeRejected,
		QueueID:      DetectQueueID(realMsg),
		Timing:       AnalyzeTiming(realMs, fakeMs),
		SPF:          spf,
		RealCode:     realCode,
		FakeCodes:    fakeCodes,
		RealTimeMs:   realElapsed.Milliseconds(),
		FakeTimesMs:  fakeTimesMs,
	}, nil
}

func (e *Engine) pause(ctx context.Context) error {
	select {
	case <-time.After(e.cfg.Pause):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// noteReply feeds IP health from reply texture: explicit blacklist phrasing
// gates the pool IP immediately, 45x tempfails count toward a block.
func (e *Engine) noteReply(ctx context.Context, srcIP, domain string, code int, msg string) {
	if e.marker == nil || srcIP == "" {
		return
	}
	switch {
	case isBlacklistReject(msg):
		if err := e.marker.MarkBlacklist(ctx, srcIP, domain); err != nil {
			e.log.Debug("mark blacklist failed", zap.Error(err))
		}
	case code == 450 || code == 451 || code == 452:
		if err := e.marker.MarkBounce(ctx, srcIP, domain); err != nil {
			e.log.Debug("mark bounce failed", zap.Error(err))
		}
	}
}

func (e *Engine) noteError(ctx context.Context, srcIP, domain string, err error) {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		e.noteReply(ctx, srcIP, domain, tpErr.Code, tpErr.Msg)
	}
}

var blacklistKeywords = []string{
	"spamhaus", "blacklist", "blocklist", "blocked using", "banned",
	"barracuda", "sorbs", "poor reputation", "client host rejected",
}

func isBlacklistReject(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range blacklistKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func randomLocal() string {
	b := make([]byte, fakeLocalLength)
	for i := range b {
		b[i] = fakeLocalAlphabet[rand.Intn(len(fakeLocalAlphabet))]
	}
	return string(b)
}
