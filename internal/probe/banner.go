// Package probe runs the multi-signal SMTP probe used for catch-all
// disambiguation: one real RCPT and two fake ones over a single connection,
// with banner fingerprinting, queue-id detection and timing analysis on top.
package probe

import (
	"strings"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

// mtaPattern ties greeting keywords to the family's verification traits.
type mtaPattern struct {
	family          string
	keywords        []string
	supportsTiming  bool
	supportsQueueID bool
	timingVariance  float64
}

// Match order is significant: first keyword hit wins.
var mtaPatterns = []mtaPattern{
	{models.FamilyPostfix, []string{"postfix"}, true, true, 0.3},
	{models.FamilyExchange, []string{"exchange", "microsoft"}, false, true, 0.1},
	{models.FamilyMimecast, []string{"mimecast"}, false, false, 0.0},
	{models.FamilySendgrid, []string{"sendgrid"}, false, true, 0.0},
	{models.FamilyGoogle, []string{"google", "aspmx"}, true, false, 0.2},
}

// FingerprintBanner maps the SMTP greeting to an MTA family. Different MTAs
// have different timing and queue-id characteristics, which gates whether
// those signals count during scoring.
func FingerprintBanner(banner string) models.MTAInfo {
	if banner == "" {
		return unknownMTA()
	}

	lower := strings.ToLower(banner)
	for _, p := range mtaPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return models.MTAInfo{
					Family:          p.family,
					SupportsTiming:  p.supportsTiming,
					SupportsQueueID: p.supportsQueueID,
					TimingVariance:  p.timingVariance,
				}
			}
		}
	}
	return unknownMTA()
}

func unknownMTA() models.MTAInfo {
	return models.MTAInfo{
		Family:          models.FamilyUnknown,
		SupportsTiming:  true,
		SupportsQueueID: true,
		TimingVariance:  0.4,
	}
}
