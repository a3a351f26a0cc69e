package probe

import (
	"math"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

// AnalyzeTiming classifies the RCPT timing differential. Servers that check
// mailboxes spend more time on a real address than on garbage; catch-all
// servers answer both in the same beat.
//
// ratio = real / mean(positive fake samples). Strict thresholds:
// above 1.4 the address looks real, below 0.8 the domain looks catch-all,
// in between the signal is ambiguous.
func AnalyzeTiming(realMs float64, fakeMs []float64) models.TimingVerdict {
	positive := make([]float64, 0, len(fakeMs))
	for _, t := range fakeMs {
		if t > 0 {
			positive = append(positive, t)
		}
	}
	if len(positive) == 0 {
		return models.TimingVerdict{Status: models.TimingInsufficientData, Ratio: 1.0}
	}

	ratio := realMs / mean(positive)

	variance := 0.0
	if len(fakeMs) > 1 {
		if m := mean(fakeMs); m > 0 {
			variance = stdev(fakeMs) / m
		}
	}

	switch {
	case ratio > 1.4:
		conf := math.Min(90, 60+(ratio-1.4)*50)
		return models.TimingVerdict{
			Status:     models.TimingValid,
			Ratio:      ratio,
			Confidence: int(math.Round(conf)),
			Variance:   variance,
		}
	case ratio < 0.8:
		conf := math.Min(80, 50+(0.8-ratio)*50)
		return models.TimingVerdict{
			Status:     models.TimingCatchAll,
			Ratio:      ratio,
			Confidence: int(math.Round(conf)),
			Variance:   variance,
		}
	default:
		return models.TimingVerdict{
			Status:     models.TimingAmbiguous,
			Ratio:      ratio,
			Confidence: 40,
			Variance:   variance,
		}
	}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation (n-1 denominator).
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
