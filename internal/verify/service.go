// Package verify orchestrates a verification request: classification,
// breaker and quota gates, the fast-path verifier, and the SMTP probe with
// scoring, fused into one VerifyResult per address. Every failure becomes a
// result; nothing escapes as an error.
package verify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/cache"
	"github.com/ranawaqas-khan/jumpingfox/internal/classify"
	"github.com/ranawaqas-khan/jumpingfox/internal/guard"
	"github.com/ranawaqas-khan/jumpingfox/internal/metrics"
	"github.com/ranawaqas-khan/jumpingfox/internal/models"
	"github.com/ranawaqas-khan/jumpingfox/internal/omkar"
	"github.com/ranawaqas-khan/jumpingfox/internal/probe"
	"github.com/ranawaqas-khan/jumpingfox/internal/score"
)

const (
	reasonBadSyntax     = "bad_syntax"
	reasonDisposable    = "disposable_domain"
	reasonNoMX          = "no_mx"
	reasonBreakerOpen   = "circuit_breaker_open"
	reasonQuotaExceeded = "quota_exceeded"
	reasonProbeError    = "probe_engine_error"
	reasonFastpathError = "fastpath_error"
	reasonCatchAll      = "catch_all_probed"
	reasonOmkarCatchAll = "omkar_catchall"
)

const (
	defaultWorkers      = 24
	defaultFlagTTL      = 6 * time.Hour
	defaultFlagCapacity = 50000

	fastpathValidConfidence   = 90
	fastpathInvalidConfidence = 10
	catchAllNoProbeConfidence = 50
)

// Fastpath is the surface of the external verifier the orchestrator uses.
type Fastpath interface {
	Verify(ctx context.Context, email string) (*omkar.Result, error)
}

// Prober runs the SMTP probe and returns raw signals.
type Prober interface {
	Verify(ctx context.Context, email string, ipIndex *int) (*models.Signals, error)
}

// Deps carries everything a Service needs. Metrics may be nil; collectors
// are then created unregistered. A nil Fastpath sends every address
// straight to the probe.
type Deps struct {
	Sets     *classify.Sets
	Breaker  *guard.Breaker
	Quota    *guard.Quota
	Fastpath Fastpath
	Prober   Prober
	Scorer   *score.Scorer
	Metrics  *metrics.Metrics

	Workers      int
	Tier         string
	FlagTTL      time.Duration
	FlagCapacity int
}

type Service struct {
	sets     *classify.Sets
	breaker  *guard.Breaker
	quota    *guard.Quota
	fastpath Fastpath
	prober   Prober
	scorer   *score.Scorer
	metrics  *metrics.Metrics

	// flags remembers domains the fast path or probe proved to be
	// catch-all, so the next address on them skips the fast path.
	flags   *cache.Store
	flagTTL time.Duration

	workers int
	tier    string
	log     *zap.Logger
}

func NewService(deps Deps, logger *zap.Logger) *Service {
	if deps.Workers <= 0 {
		deps.Workers = defaultWorkers
	}
	if deps.Tier == "" {
		deps.Tier = "default"
	}
	if deps.FlagTTL <= 0 {
		deps.FlagTTL = defaultFlagTTL
	}
	if deps.FlagCapacity <= 0 {
		deps.FlagCapacity = defaultFlagCapacity
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Service{
		sets:     deps.Sets,
		breaker:  deps.Breaker,
		quota:    deps.Quota,
		fastpath: deps.Fastpath,
		prober:   deps.Prober,
		scorer:   deps.Scorer,
		metrics:  deps.Metrics,
		flags:    cache.New(deps.FlagCapacity),
		flagTTL:  deps.FlagTTL,
		workers:  deps.Workers,
		tier:     deps.Tier,
		log:      logger.Named("verify"),
	}
}

// StartCleanup launches background eviction of expired catch-all flags.
func (s *Service) StartCleanup(ctx context.Context, interval time.Duration) {
	s.flags.StartCleanup(ctx, interval)
}

// BatchResult is a batch response plus the quota error to surface when the
// entire request was gated.
type BatchResult struct {
	Response models.VerifyResponse

	// QuotaExceeded is set when every address in the batch was rejected by
	// the quota enforcer; the HTTP layer turns it into a 429.
	QuotaExceeded *guard.QuotaExceededError
}

type outcome struct {
	result   models.VerifyResult
	quotaErr *guard.QuotaExceededError
	isError  bool
}

// VerifyBatch runs the request's addresses through a worker pool. Result
// order is unspecified; each result carries its email.
func (s *Service) VerifyBatch(ctx context.Context, req *models.VerifyRequest) BatchResult {
	start := time.Now()

	workers := s.workers
	if workers > len(req.Emails) {
		workers = len(req.Emails)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	outcomes := make(chan outcome, len(req.Emails))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for email := range jobs {
				s.metrics.ActiveWorkers.Inc()
				outcomes <- s.verifyOne(ctx, email, req)
				s.metrics.ActiveWorkers.Dec()
			}
		}()
	}

	for _, email := range req.Emails {
		jobs <- email
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	results := make([]models.VerifyResult, 0, len(req.Emails))
	var (
		totalErrors int
		quotaGated  int
		firstQuota  *guard.QuotaExceededError
	)
	for out := range outcomes {
		results = append(results, out.result)
		if out.isError {
			totalErrors++
		}
		if out.quotaErr != nil {
			quotaGated++
			if firstQuota == nil {
				firstQuota = out.quotaErr
			}
		}
		s.metrics.VerificationsTotal.
			WithLabelValues(string(out.result.Status), string(out.result.Source)).Inc()
	}

	br := BatchResult{
		Response: models.VerifyResponse{
			Results:          results,
			TotalProcessed:   len(req.Emails),
			TotalErrors:      totalErrors,
			ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		},
	}
	if len(req.Emails) > 0 && quotaGated == len(req.Emails) {
		br.QuotaExceeded = firstQuota
	}
	return br
}

// VerifyOne verifies a single address with default request options. Used by
// the job worker, where batching happens upstream.
func (s *Service) VerifyOne(ctx context.Context, email, customerID string) models.VerifyResult {
	out := s.verifyOne(ctx, email, &models.VerifyRequest{CustomerID: customerID})
	s.metrics.VerificationsTotal.
		WithLabelValues(string(out.result.Status), string(out.result.Source)).Inc()
	return out.result
}

func (s *Service) verifyOne(ctx context.Context, rawEmail string, req *models.VerifyRequest) outcome {
	email := classify.Normalize(rawEmail)
	res := models.VerifyResult{Email: email, Source: models.SourceSystem}

	if !classify.IsValidSyntax(email) {
		res.Status = models.StatusInvalid
		res.Deliverable = boolPtr(false)
		res.Reason = reasonBadSyntax
		return outcome{result: res}
	}

	local, domain := classify.Split(email)
	if s.sets != nil {
		res.Free = s.sets.IsFree(domain)
		res.Role = s.sets.IsRole(local)
		res.Disposable = s.sets.IsDisposable(domain)
	}

	// Disposable domains never get network work spent on them.
	if res.Disposable {
		res.Status = models.StatusInvalid
		res.Deliverable = boolPtr(false)
		res.Reason = reasonDisposable
		return outcome{result: res}
	}

	if s.breaker.IsOpen(domain) {
		retry := s.breaker.TimeUntilRetry(domain)
		res.Status = models.StatusRisky
		res.Reason = reasonBreakerOpen
		res.RetryAfter = &retry
		s.metrics.BreakerOpenTotal.Inc()
		return outcome{result: res, isError: true}
	}

	if err := s.quota.Check(ctx, req.CustomerID, domain, s.tier); err != nil {
		var qe *guard.QuotaExceededError
		res.Status = models.StatusRisky
		res.Reason = reasonQuotaExceeded
		if errors.As(err, &qe) {
			if qe.ResetIn >= 0 {
				reset := qe.ResetIn
				res.RetryAfter = &reset
			}
			s.metrics.QuotaExceededTotal.WithLabelValues(qe.Scope).Inc()
			return outcome{result: res, quotaErr: qe, isError: true}
		}
		return outcome{result: res, isError: true}
	}

	// A domain already proven catch-all skips the fast path; the answer
	// would just be "catch-all" again.
	knownCatchAll := false
	if v, ok := s.flags.Get(domain); ok {
		knownCatchAll, _ = v.(bool)
	}

	if !knownCatchAll {
		if out, done := s.tryFastpath(ctx, email, domain, &res); done {
			return out
		}
		// Not done: either the fast path reported catch-all or it failed;
		// both continue below.
	}

	if !req.ProbeEnabled() {
		catchAll := knownCatchAll || (res.CatchAll != nil && *res.CatchAll)
		return s.withoutProbe(res, catchAll)
	}

	return s.probeAndScore(ctx, email, domain, req.IPIndex, res)
}

// tryFastpath consults the external verifier. done=true means res is final.
// On a catch-all verdict it flags the domain and leaves res.CatchAll set;
// on error it records the breaker failure. Both fall through to the probe.
func (s *Service) tryFastpath(ctx context.Context, email, domain string, res *models.VerifyResult) (outcome, bool) {
	if s.fastpath == nil {
		return outcome{}, false
	}

	start := time.Now()
	fpRes, err := s.fastpath.Verify(ctx, email)
	s.metrics.FastpathDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.log.Warn("fast path failed",
			zap.String("email", email),
			zap.Error(err))
		s.breaker.RecordFailure(domain)
		return outcome{}, false
	}

	if fpRes.IsFreeEmail != nil {
		res.Free = *fpRes.IsFreeEmail
	}

	if fpRes.IsCatchAll() {
		s.flags.Set(domain, true, s.flagTTL)
		res.CatchAll = boolPtr(true)
		return outcome{}, false
	}

	res.Source = models.SourceOmkar
	res.CatchAll = boolPtr(false)
	res.Reason = fpRes.Reason
	if fpRes.IsValid {
		res.Status = models.StatusValid
		res.Deliverable = boolPtr(true)
		res.Confidence = fastpathValidConfidence
	} else {
		res.Status = models.StatusInvalid
		res.Deliverable = boolPtr(false)
		res.Confidence = fastpathInvalidConfidence
	}
	s.breaker.RecordSuccess(domain)
	return outcome{result: *res}, true
}

// withoutProbe finishes an address whose request disabled probing. A known
// catch-all is reported as such; a fast-path failure has nowhere to go.
func (s *Service) withoutProbe(res models.VerifyResult, catchAll bool) outcome {
	if catchAll {
		res.Status = models.StatusRisky
		res.Confidence = catchAllNoProbeConfidence
		res.Deliverable = boolPtr(false)
		res.CatchAll = boolPtr(true)
		res.Source = models.SourceOmkar
		res.Reason = reasonOmkarCatchAll
		return outcome{result: res}
	}
	res.Status = models.StatusUnknown
	res.Source = models.SourceSystem
	res.Reason = reasonFastpathError
	return outcome{result: res, isError: true}
}

func (s *Service) probeAndScore(ctx context.Context, email, domain string, ipIndex *int, res models.VerifyResult) outcome {
	start := time.Now()
	signals, err := s.prober.Verify(ctx, email, ipIndex)
	s.metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, probe.ErrNoMX) {
			res.Status = models.StatusInvalid
			res.Deliverable = boolPtr(false)
			res.Reason = reasonNoMX
			res.Source = models.SourceSystem
			return outcome{result: res}
		}
		s.log.Warn("probe failed",
			zap.String("email", email),
			zap.Error(err))
		s.breaker.RecordFailure(domain)
		res.Status = models.StatusUnknown
		res.Confidence = 0
		res.Reason = reasonProbeError
		res.Source = models.SourceSystem
		return outcome{result: res, isError: true}
	}

	confidence := s.scorer.Score(ctx, signals, domain)
	res.Status = score.StatusFor(confidence)
	res.Confidence = confidence
	res.CatchAll = boolPtr(true)
	res.Source = models.SourceProbe
	res.Reason = reasonCatchAll
	res.Signals = signals

	// The probe is direct evidence: fakes accepted means the domain really
	// is catch-all, fakes rejected means it is not, whatever got us here.
	if signals.FakeRejected {
		s.flags.Delete(domain)
	} else {
		s.flags.Set(domain, true, s.flagTTL)
	}

	s.breaker.RecordSuccess(domain)
	return outcome{result: res}
}

func boolPtr(b bool) *bool { return &b }
