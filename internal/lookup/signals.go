package lookup

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

// SPF looks for the domain's SPF policy in its TXT records.
// strict means the record hard-fails unknown senders (-all).
func (a *Analyzer) SPF(ctx context.Context, domain string) models.SPFSignal {
	ctx, cancel := context.WithTimeout(ctx, a.lifetime)
	defer cancel()

	txts, err := a.resolver.LookupTXT(ctx, domain)
	if err != nil {
		a.log.Debug("spf lookup failed", zap.String("domain", domain), zap.Error(err))
		return models.SPFSignal{}
	}
	for _, txt := range txts {
		if strings.HasPrefix(txt, "v=spf1") {
			return models.SPFSignal{
				Present: true,
				Strict:  strings.Contains(txt, "-all"),
				Text:    txt,
			}
		}
	}
	return models.SPFSignal{}
}

// DMARC looks for a policy record at _dmarc.<domain>.
func (a *Analyzer) DMARC(ctx context.Context, domain string) models.DMARCSignal {
	ctx, cancel := context.WithTimeout(ctx, a.lifetime)
	defer cancel()

	txts, err := a.resolver.LookupTXT(ctx, "_dmarc."+domain)
	if err != nil {
		return models.DMARCSignal{}
	}
	for _, txt := range txts {
		if strings.HasPrefix(txt, "v=DMARC1") {
			return models.DMARCSignal{Present: true, Text: txt}
		}
	}
	return models.DMARCSignal{}
}

// ReputationScore folds the policy records into a 0-100 sub-score.
func ReputationScore(spf models.SPFSignal, dmarc models.DMARCSignal, mx models.MXSignal) int {
	score := 50
	if spf.Present {
		score += 15
	}
	if spf.Strict {
		score += 10
	}
	if dmarc.Present {
		score += 15
	}
	if mx.Present && mx.Count > 1 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// ESPFromMX categorizes the mail infrastructure from the primary MX host.
func ESPFromMX(hosts []models.MXHost) string {
	if len(hosts) == 0 {
		return "unknown"
	}
	mx := strings.ToLower(hosts[0].Host)

	switch {
	case strings.Contains(mx, "google") || strings.Contains(mx, "gmail-smtp-in") || strings.Contains(mx, "googlemail"):
		return "google"
	case strings.Contains(mx, "outlook") || strings.Contains(mx, "protection.outlook"):
		return "microsoft"
	case strings.Contains(mx, "zoho"):
		return "zoho"
	case strings.Contains(mx, "mimecast"):
		return "mimecast"
	case strings.Contains(mx, "proofpoint") || strings.Contains(mx, "pphosted"):
		return "proofpoint"
	case strings.Contains(mx, "barracuda"):
		return "barracuda"
	}
	return "unknown"
}

// Analyze produces the full DNS snapshot for one domain.
func (a *Analyzer) Analyze(ctx context.Context, domain string) models.DNSSnapshot {
	domain = strings.ToLower(domain)
	spf := a.SPF(ctx, domain)
	dmarc := a.DMARC(ctx, domain)
	hosts := a.MX(ctx, domain)

	mx := models.MXSignal{
		Present: len(hosts) > 0,
		Count:   len(hosts),
		Hosts:   hosts,
	}

	return models.DNSSnapshot{
		Domain:          domain,
		SPF:             spf,
		DMARC:           dmarc,
		MX:              mx,
		Provider:        ESPFromMX(hosts),
		ReputationScore: ReputationScore(spf, dmarc, mx),
	}
}
