package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// quotaWindow is how long a rolling-hour counter lives after its first
// increment.
const quotaWindow = time.Hour

const (
	ScopeCustomer = "customer"
	ScopeGlobal   = "global"
	ScopeStore    = "store"
)

// Tier holds the hourly limits for one customer tier.
type Tier struct {
	PerCustomerHour int64
	GlobalHour      int64
}

// DefaultTiers is the shipped tier table.
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		"default":   {PerCustomerHour: 500, GlobalHour: 5000},
		"high_tier": {PerCustomerHour: 5000, GlobalHour: 50000},
	}
}

// QuotaExceededError reports which scope ran out and when it resets.
type QuotaExceededError struct {
	Scope   string
	Message string
	Limit   int64
	Used    int64
	ResetIn int // seconds until the window resets; -1 when unknown
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s (used %d of %d)", e.Message, e.Used, e.Limit)
}

// Quota enforces the dual-scoped rolling-hour limits. All counters live in
// Redis; when Redis is unreachable the check fails closed.
type Quota struct {
	rdb   *redis.Client
	tiers map[string]Tier
	log   *zap.Logger
}

// NewQuota builds a quota enforcer. A nil tier table falls back to
// DefaultTiers.
func NewQuota(rdb *redis.Client, tiers map[string]Tier, logger *zap.Logger) *Quota {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	return &Quota{rdb: rdb, tiers: tiers, log: logger.Named("quota")}
}

func (q *Quota) limits(tier string) Tier {
	if t, ok := q.tiers[tier]; ok {
		return t
	}
	return q.tiers["default"]
}

// Check charges one verification against the customer and global counters
// for the domain. It returns a *QuotaExceededError when either scope is over
// its hourly limit, or nil when the request may proceed.
//
// Counters are incremented before the limit test; a rejected request still
// consumes a slot. The window TTL is set exactly once, when the counter
// moves from 0 to 1.
func (q *Quota) Check(ctx context.Context, customerID, domain, tier string) error {
	limits := q.limits(tier)

	custKey := fmt.Sprintf("quota:cust:%s:%s", customerID, domain)
	used, err := q.charge(ctx, custKey)
	if err != nil {
		return q.failClosed(err)
	}
	if used > limits.PerCustomerHour {
		return q.exceeded(ctx, ScopeCustomer, "Customer domain quota exceeded", custKey, limits.PerCustomerHour, used)
	}

	globKey := fmt.Sprintf("quota:global:%s", domain)
	used, err = q.charge(ctx, globKey)
	if err != nil {
		return q.failClosed(err)
	}
	if used > limits.GlobalHour {
		return q.exceeded(ctx, ScopeGlobal, "Global domain quota exceeded", globKey, limits.GlobalHour, used)
	}

	return nil
}

func (q *Quota) charge(ctx context.Context, key string) (int64, error) {
	count, err := q.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := q.rdb.Expire(ctx, key, quotaWindow).Err(); err != nil {
			return 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count, nil
}

// failClosed converts a store error into a quota rejection with an unknown
// reset time. Letting traffic through with no working counters would defeat
// the whole protection layer.
func (q *Quota) failClosed(err error) *QuotaExceededError {
	q.log.Error("quota store unreachable, failing closed", zap.Error(err))
	return &QuotaExceededError{
		Scope:   ScopeStore,
		Message: "Quota state unavailable",
		ResetIn: -1,
	}
}

func (q *Quota) exceeded(ctx context.Context, scope, msg, key string, limit, used int64) *QuotaExceededError {
	resetIn := -1
	if ttl, err := q.rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		resetIn = int(ttl / time.Second)
	}
	return &QuotaExceededError{
		Scope:   scope,
		Message: msg,
		Limit:   limit,
		Used:    used,
		ResetIn: resetIn,
	}
}

// QuotaUsage is the snapshot served by GET /quota/{customer_id}/{domain}.
type QuotaUsage struct {
	CustomerUsed    int64 `json:"customer_used"`
	CustomerLimit   int64 `json:"customer_limit"`
	GlobalUsed      int64 `json:"global_used"`
	GlobalLimit     int64 `json:"global_limit"`
	CustomerResetIn int   `json:"customer_reset_in"`
	GlobalResetIn   int   `json:"global_reset_in"`
}

// Usage reads the current counters without charging them.
func (q *Quota) Usage(ctx context.Context, customerID, domain, tier string) (QuotaUsage, error) {
	limits := q.limits(tier)
	custKey := fmt.Sprintf("quota:cust:%s:%s", customerID, domain)
	globKey := fmt.Sprintf("quota:global:%s", domain)

	custUsed, err := q.counter(ctx, custKey)
	if err != nil {
		return QuotaUsage{}, err
	}
	globUsed, err := q.counter(ctx, globKey)
	if err != nil {
		return QuotaUsage{}, err
	}

	return QuotaUsage{
		CustomerUsed:    custUsed,
		CustomerLimit:   limits.PerCustomerHour,
		GlobalUsed:      globUsed,
		GlobalLimit:     limits.GlobalHour,
		CustomerResetIn: q.resetIn(ctx, custKey),
		GlobalResetIn:   q.resetIn(ctx, globKey),
	}, nil
}

func (q *Quota) counter(ctx context.Context, key string) (int64, error) {
	n, err := q.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return n, nil
}

func (q *Quota) resetIn(ctx context.Context, key string) int {
	ttl, err := q.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return -1
	}
	return int(ttl / time.Second)
}
