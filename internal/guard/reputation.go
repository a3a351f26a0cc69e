package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	bounceWindow   = time.Hour
	fpWindow       = 7 * 24 * time.Hour
	degradedWindow = time.Hour

	// fpDegradeCount is how many false positives inside the window mark the
	// domain as degraded.
	fpDegradeCount = 10
)

// Reputation tracks per-domain bounce and false-positive history and derives
// the confidence cap the scorer applies. Unlike quota, reputation fails
// open: with the store unreachable the cap is 100 and nothing is degraded,
// so verification quality degrades gracefully instead of halting.
type Reputation struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewReputation(rdb *redis.Client, logger *zap.Logger) *Reputation {
	return &Reputation{rdb: rdb, log: logger.Named("reputation")}
}

func bounceKey(domain string) string   { return "reputation:bounces:" + domain }
func fpKey(domain string) string       { return "reputation:fp:" + domain }
func degradedKey(domain string) string { return "reputation:degraded:" + domain }

// RecordBounce counts one bounce against the domain's rolling hour.
func (r *Reputation) RecordBounce(ctx context.Context, domain string) error {
	key := bounceKey(domain)
	if err := r.rdb.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("incr %s: %w", key, err)
	}
	if err := r.rdb.Expire(ctx, key, bounceWindow).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// RecordFalsePositive counts an address we marked valid that bounced later.
// Ten inside the rolling week degrade the domain.
func (r *Reputation) RecordFalsePositive(ctx context.Context, domain string) error {
	key := fpKey(domain)
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("incr %s: %w", key, err)
	}
	if err := r.rdb.Expire(ctx, key, fpWindow).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	if count >= fpDegradeCount {
		return r.Degrade(ctx, domain, "high_false_positive_rate")
	}
	return nil
}

// Degrade marks the domain as untrustworthy for the next hour.
func (r *Reputation) Degrade(ctx context.Context, domain, reason string) error {
	r.log.Warn("degrading domain", zap.String("domain", domain), zap.String("reason", reason))
	if err := r.rdb.SetEx(ctx, degradedKey(domain), reason, degradedWindow).Err(); err != nil {
		return fmt.Errorf("setex %s: %w", degradedKey(domain), err)
	}
	return nil
}

// IsDegraded reports whether the domain carries a degraded flag.
func (r *Reputation) IsDegraded(ctx context.Context, domain string) bool {
	n, err := r.rdb.Exists(ctx, degradedKey(domain)).Result()
	if err != nil {
		r.log.Warn("reputation store unreachable, failing open", zap.Error(err))
		return false
	}
	return n > 0
}

// ConfidenceCap returns the maximum confidence the domain's history allows.
func (r *Reputation) ConfidenceCap(ctx context.Context, domain string) int {
	if r.IsDegraded(ctx, domain) {
		return 50
	}

	bounces, err := r.counter(ctx, bounceKey(domain))
	if err != nil {
		r.log.Warn("reputation store unreachable, failing open", zap.Error(err))
		return 100
	}

	switch {
	case bounces > 20:
		return 70
	case bounces > 10:
		return 80
	default:
		return 100
	}
}

// ReputationSnapshot is the view served by GET /reputation/{domain}.
type ReputationSnapshot struct {
	Domain         string `json:"domain"`
	Degraded       bool   `json:"degraded"`
	Bounces        int64  `json:"bounces"`
	FalsePositives int64  `json:"false_positives"`
	ConfidenceCap  int    `json:"confidence_cap"`
}

// Snapshot reads the full reputation picture for one domain. Store errors
// yield the fail-open snapshot rather than an error.
func (r *Reputation) Snapshot(ctx context.Context, domain string) ReputationSnapshot {
	bounces, err := r.counter(ctx, bounceKey(domain))
	if err != nil {
		bounces = 0
	}
	fps, err := r.counter(ctx, fpKey(domain))
	if err != nil {
		fps = 0
	}
	return ReputationSnapshot{
		Domain:         domain,
		Degraded:       r.IsDegraded(ctx, domain),
		Bounces:        bounces,
		FalsePositives: fps,
		ConfidenceCap:  r.ConfidenceCap(ctx, domain),
	}
}

func (r *Reputation) counter(ctx context.Context, key string) (int64, error) {
	n, err := r.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return n, nil
}
