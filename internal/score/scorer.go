package score

import (
	"context"

	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

const (
	baseScore         = 50
	fakeRejectedScore = 95

	weightQueueID     = 20
	weightTimingValid = 15
	weightSPFStrict   = 5

	penaltyTimingCatchAll = 10

	timingValidRatio    = 1.4
	timingCatchAllRatio = 0.8

	// ValidThreshold is the confidence at which a probe verdict becomes
	// "valid" rather than "risky".
	ValidThreshold = 80
)

// ReputationCapper bounds confidence by the domain's observed bounce and
// false-positive history.
type ReputationCapper interface {
	ConfidenceCap(ctx context.Context, domain string) int
}

// Scorer turns one probe session's signals into a confidence score.
type Scorer struct {
	providers  *ProviderCaps
	reputation ReputationCapper
	log        *zap.Logger
}

func NewScorer(providers *ProviderCaps, reputation ReputationCapper, logger *zap.Logger) *Scorer {
	return &Scorer{
		providers:  providers,
		reputation: reputation,
		log:        logger.Named("scorer"),
	}
}

// Score computes the confidence in [0,100] for one set of probe signals.
//
// A rejected fake RCPT means the domain discriminates between mailboxes,
// which is the strongest possible signal; it short-circuits the additive
// weights entirely. Everything else starts at the base and accumulates.
func (s *Scorer) Score(ctx context.Context, sig *models.Signals, domain string) int {
	// ── 1. Fake rejected short-circuit ──────────────────────────────────────
	if sig.FakeRejected {
		return s.applyCaps(ctx, fakeRejectedScore, domain)
	}

	score := baseScore

	// ── 2. Queue ID ─────────────────────────────────────────────────────────
	if sig.QueueID.Detected {
		score += weightQueueID
	}

	// ── 3. Timing ratio ─────────────────────────────────────────────────────
	if sig.Timing.Ratio > timingValidRatio {
		score += weightTimingValid
	} else if sig.Timing.Ratio < timingCatchAllRatio {
		score -= penaltyTimingCatchAll
	}

	// ── 4. SPF strictness ───────────────────────────────────────────────────
	if sig.SPF.Strict {
		score += weightSPFStrict
	}

	return s.applyCaps(ctx, score, domain)
}

// applyCaps bounds the raw score by the provider cap, then the reputation
// cap, then clamps to [0,100].
func (s *Scorer) applyCaps(ctx context.Context, score int, domain string) int {
	capped := s.providers.Apply(score, domain)

	repCap := s.reputation.ConfidenceCap(ctx, domain)
	if capped > repCap {
		capped = repCap
	}

	if capped != score {
		s.log.Debug("confidence capped",
			zap.String("domain", domain),
			zap.Int("raw", score),
			zap.Int("capped", capped))
	}

	if capped > 100 {
		capped = 100
	}
	if capped < 0 {
		capped = 0
	}
	return capped
}

// StatusFor derives the verification status from a final confidence.
// Invalid and unknown verdicts come from earlier pipeline stages, never
// from scoring.
func StatusFor(confidence int) models.VerificationStatus {
	if confidence >= ValidThreshold {
		return models.StatusValid
	}
	return models.StatusRisky
}
