// Package lookup resolves the DNS side of verification: MX records with a
// bounded in-memory cache, SPF/DMARC policy records and the reputation
// sub-score derived from them.
package lookup

import (
	"context"
	"net"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/cache"
	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

// Resolver is the subset of net.Resolver the analyzer needs. Tests swap in
// mockdns.Resolver.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// NewResolver builds a resolver with a strict per-dial timeout.
// In a high-perf SaaS we can't wait 30 seconds for a bad DNS server.
func NewResolver(timeout time.Duration) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, network, address)
		},
	}
}

const (
	defaultMXTTL      = time.Hour
	defaultMXCapacity = 50000
	defaultLifetime   = 5 * time.Second
)

type Options struct {
	MXTTL      time.Duration
	MXCapacity int
	Lifetime   time.Duration
}

// Analyzer answers MX/SPF/DMARC queries for one domain at a time.
// MX results are cached; lookup failures are returned empty and never
// negatively cached.
type Analyzer struct {
	resolver Resolver
	mxCache  *cache.Store
	mxTTL    time.Duration
	lifetime time.Duration
	log      *zap.Logger
}

func NewAnalyzer(resolver Resolver, opts Options, logger *zap.Logger) *Analyzer {
	if opts.MXTTL <= 0 {
		opts.MXTTL = defaultMXTTL
	}
	if opts.MXCapacity <= 0 {
		opts.MXCapacity = defaultMXCapacity
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = defaultLifetime
	}
	return &Analyzer{
		resolver: resolver,
		mxCache:  cache.New(opts.MXCapacity),
		mxTTL:    opts.MXTTL,
		lifetime: opts.Lifetime,
		log:      logger.Named("dns"),
	}
}

// StartCleanup launches background eviction of expired MX entries.
func (a *Analyzer) StartCleanup(ctx context.Context, interval time.Duration) {
	a.mxCache.StartCleanup(ctx, interval)
}

// MX returns the domain's MX hosts sorted ascending by preference.
// An empty slice means the domain has no usable MX (NXDOMAIN, timeout or a
// genuinely empty record set).
func (a *Analyzer) MX(ctx context.Context, domain string) []models.MXHost {
	domain = strings.ToLower(domain)

	if v, ok := a.mxCache.Get(domain); ok {
		return v.([]models.MXHost)
	}

	ctx, cancel := context.WithTimeout(ctx, a.lifetime)
	defer cancel()

	records, err := a.resolver.LookupMX(ctx, domain)
	if err != nil {
		a.log.Debug("mx lookup failed", zap.String("domain", domain), zap.Error(err))
		return nil
	}

	hosts := make([]models.MXHost, 0, len(records))
	for _, r := range records {
		host := strings.ToLower(strings.TrimSuffix(r.Host, "."))
		if host == "" {
			continue
		}
		hosts = append(hosts, models.MXHost{Priority: int(r.Pref), Host: host})
	}
	sort.Slice(hosts, func(i, j int) bool {
		if hosts[i].Priority != hosts[j].Priority {
			return hosts[i].Priority < hosts[j].Priority
		}
		return hosts[i].Host < hosts[j].Host
	})

	if len(hosts) > 0 {
		a.mxCache.Set(domain, hosts, a.mxTTL)
	}
	return hosts
}

// Primary returns the lowest-preference MX host, if any.
func (a *Analyzer) Primary(ctx context.Context, domain string) (string, bool) {
	hosts := a.MX(ctx, domain)
	if len(hosts) == 0 {
		return "", false
	}
	return hosts[0].Host, true
}
