package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ipBounceWindow = time.Hour
	ipBlockWindow  = time.Hour

	// ipBounceBlockCount bounces from one IP to one domain inside the window
	// block the pair.
	ipBounceBlockCount = 5
)

// IPHealth tracks how each probe source IP is being received per domain.
// A blocked (ip, domain) pair steers the prober back to the default route;
// like reputation, it fails open when the store is down.
type IPHealth struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewIPHealth(rdb *redis.Client, logger *zap.Logger) *IPHealth {
	return &IPHealth{rdb: rdb, log: logger.Named("iphealth")}
}

func ipBounceKey(ip, domain string) string { return fmt.Sprintf("ip:bounces:%s:%s", ip, domain) }
func ipBlockKey(ip, domain string) string  { return fmt.Sprintf("ip:blocked:%s:%s", ip, domain) }

// MarkBounce counts a bounce from ip against domain and blocks the pair
// once the window count reaches the limit.
func (h *IPHealth) MarkBounce(ctx context.Context, ip, domain string) error {
	key := ipBounceKey(ip, domain)
	count, err := h.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("incr %s: %w", key, err)
	}
	if err := h.rdb.Expire(ctx, key, ipBounceWindow).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	if count >= ipBounceBlockCount {
		return h.Block(ctx, ip, domain, "too_many_bounces")
	}
	return nil
}

// MarkBlacklist records that domain's MTA treated ip as blacklisted.
func (h *IPHealth) MarkBlacklist(ctx context.Context, ip, domain string) error {
	return h.Block(ctx, ip, domain, "blacklist")
}

// Block gates the (ip, domain) pair for an hour.
func (h *IPHealth) Block(ctx context.Context, ip, domain, reason string) error {
	h.log.Warn("blocking source ip",
		zap.String("ip", ip),
		zap.String("domain", domain),
		zap.String("reason", reason))
	if err := h.rdb.SetEx(ctx, ipBlockKey(ip, domain), reason, ipBlockWindow).Err(); err != nil {
		return fmt.Errorf("setex %s: %w", ipBlockKey(ip, domain), err)
	}
	return nil
}

// IsBlocked reports whether probes from ip to domain are currently gated.
func (h *IPHealth) IsBlocked(ctx context.Context, ip, domain string) bool {
	n, err := h.rdb.Exists(ctx, ipBlockKey(ip, domain)).Result()
	if err != nil {
		h.log.Warn("ip health store unreachable, failing open", zap.Error(err))
		return false
	}
	return n > 0
}

// IPHealthSnapshot is the per-pair health view for operators.
type IPHealthSnapshot struct {
	IP          string `json:"ip"`
	Domain      string `json:"domain"`
	Bounces     int64  `json:"bounces"`
	Blocked     bool   `json:"blocked"`
	HealthScore int    `json:"health_score"`
}

// Health reads the current state of one (ip, domain) pair.
func (h *IPHealth) Health(ctx context.Context, ip, domain string) IPHealthSnapshot {
	var bounces int64
	if n, err := h.rdb.Get(ctx, ipBounceKey(ip, domain)).Int64(); err == nil {
		bounces = n
	}

	healthScore := 100 - int(bounces)*15
	if healthScore < 0 {
		healthScore = 0
	}

	return IPHealthSnapshot{
		IP:          ip,
		Domain:      domain,
		Bounces:     bounces,
		Blocked:     h.IsBlocked(ctx, ip, domain),
		HealthScore: healthScore,
	}
}
