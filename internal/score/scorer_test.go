package score

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

// stubCap satisfies ReputationCapper with a fixed cap.
type stubCap int

func (c stubCap) ConfidenceCap(context.Context, string) int { return int(c) }

func newTestScorer(repCap int) *Scorer {
	return NewScorer(DefaultProviderCaps(), stubCap(repCap), zap.NewNop())
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		signals models.Signals
		domain  string
		repCap  int
		want    int
	}{
		{
			// fake rejected: 95 pre-cap, default provider cap 85
			name:    "fake rejected short-circuit",
			signals: models.Signals{FakeRejected: true},
			domain:  "catchall.test",
			repCap:  100,
			want:    85,
		},
		{
			// short-circuit ignores every other signal
			name: "fake rejected ignores additive signals",
			signals: models.Signals{
				FakeRejected: true,
				QueueID:      models.QueueIDSignal{Detected: true},
				Timing:       models.TimingVerdict{Ratio: 2.0},
				SPF:          models.SPFSignal{Present: true, Strict: true},
			},
			domain: "corp.test",
			repCap: 100,
			want:   85,
		},
		{
			// 50 + 20 + 15 + 5 = 90, gmail capped at 70
			name: "gmail strong signals capped",
			signals: models.Signals{
				QueueID: models.QueueIDSignal{Detected: true},
				Timing:  models.TimingVerdict{Ratio: 1.8},
				SPF:     models.SPFSignal{Present: true, Strict: true},
			},
			domain: "gmail.com",
			repCap: 100,
			want:   70,
		},
		{
			// same signals, unknown domain: default cap 85
			name: "strong signals default cap",
			signals: models.Signals{
				QueueID: models.QueueIDSignal{Detected: true},
				Timing:  models.TimingVerdict{Ratio: 1.8},
				SPF:     models.SPFSignal{Present: true, Strict: true},
			},
			domain: "acme.test",
			repCap: 100,
			want:   85,
		},
		{
			name:    "no signals keeps base",
			signals: models.Signals{Timing: models.TimingVerdict{Ratio: 1.0}},
			domain:  "acme.test",
			repCap:  100,
			want:    50,
		},
		{
			// 50 - 10 for catch-all-like timing
			name:    "catch-all timing penalty",
			signals: models.Signals{Timing: models.TimingVerdict{Ratio: 0.5}},
			domain:  "acme.test",
			repCap:  100,
			want:    40,
		},
		{
			// ratio exactly 1.4 is not a valid signal (strict >)
			name:    "boundary ratio 1.4 not rewarded",
			signals: models.Signals{Timing: models.TimingVerdict{Ratio: 1.4}},
			domain:  "acme.test",
			repCap:  100,
			want:    50,
		},
		{
			// ratio exactly 0.8 is not penalized (strict <)
			name:    "boundary ratio 0.8 not penalized",
			signals: models.Signals{Timing: models.TimingVerdict{Ratio: 0.8}},
			domain:  "acme.test",
			repCap:  100,
			want:    50,
		},
		{
			// reputation cap tighter than provider cap
			name:    "reputation cap wins when lower",
			signals: models.Signals{FakeRejected: true},
			domain:  "acme.test",
			repCap:  50,
			want:    50,
		},
		{
			// provider cap tighter than reputation cap
			name: "yahoo cap below reputation cap",
			signals: models.Signals{
				QueueID: models.QueueIDSignal{Detected: true},
				Timing:  models.TimingVerdict{Ratio: 2.0},
			},
			domain: "yahoo.com",
			repCap: 80,
			want:   65,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScorer(tt.repCap)
			got := s.Score(context.Background(), &tt.signals, tt.domain)
			if got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("Score %d outside [0,100]", got)
			}
		})
	}
}

func TestScoreFakeRejectedEqualsMinOfCaps(t *testing.T) {
	// For fake_rejected the final score is min(95, provider cap, reputation cap).
	domains := []string{"gmail.com", "yahoo.com", "outlook.com", "microsoft.com", "acme.test"}
	repCaps := []int{50, 70, 80, 100}

	providers := DefaultProviderCaps()
	for _, domain := range domains {
		for _, repCap := range repCaps {
			s := newTestScorer(repCap)
			got := s.Score(context.Background(), &models.Signals{FakeRejected: true}, domain)

			want := 95
			if pc := providers.Cap(domain); pc < want {
				want = pc
			}
			if repCap < want {
				want = repCap
			}
			if got != want {
				t.Errorf("Score(fake_rejected, %s, repCap=%d) = %d, want %d", domain, repCap, got, want)
			}
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		confidence int
		want       models.VerificationStatus
	}{
		{100, models.StatusValid},
		{85, models.StatusValid},
		// exactly at the threshold is valid
		{80, models.StatusValid},
		{79, models.StatusRisky},
		{50, models.StatusRisky},
		{0, models.StatusRisky},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.confidence); got != tt.want {
			t.Errorf("StatusFor(%d) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestProviderCaps(t *testing.T) {
	p := DefaultProviderCaps()

	tests := []struct {
		domain string
		cap    int
	}{
		{"gmail.com", 70},
		{"googlemail.com", 70},
		{"yahoo.com", 65},
		{"aol.com", 65},
		{"outlook.com", 75},
		{"hotmail.com", 75},
		{"live.com", 75},
		{"microsoft.com", 85},
		{"apple.com", 85},
		{"unknown-corp.test", 85},
		// exact-match table is keyed lowercase
		{"GMAIL.COM", 70},
	}
	for _, tt := range tests {
		if got := p.Cap(tt.domain); got != tt.cap {
			t.Errorf("Cap(%q) = %d, want %d", tt.domain, got, tt.cap)
		}
	}
}

func TestProviderCapsApplyIdempotent(t *testing.T) {
	p := DefaultProviderCaps()
	for _, domain := range []string{"gmail.com", "acme.test", "yahoo.com"} {
		for _, conf := range []int{0, 40, 65, 70, 85, 95, 100} {
			once := p.Apply(conf, domain)
			if twice := p.Apply(once, domain); twice != once {
				t.Errorf("Apply not idempotent for (%d, %s): %d -> %d", conf, domain, once, twice)
			}
		}
	}
}
