// Package score fuses probe signals into a bounded confidence and derives
// the verification status from it. Confidence never escapes [0,100]; the
// provider and reputation caps bound what any single probe can claim.
package score

import "strings"

// ProviderCaps bounds the confidence per receiving provider. Big free-mail
// providers run catch-all-ish infrastructure that defeats most signals, so
// even a clean probe against them cannot honestly claim more than the cap.
type ProviderCaps struct {
	caps     map[string]int
	fallback int
}

// DefaultProviderCaps returns the static cap table.
func DefaultProviderCaps() *ProviderCaps {
	return &ProviderCaps{
		caps: map[string]int{
			// Catch-all heavy, hard to verify
			"gmail.com":      70,
			"googlemail.com": 70,
			"yahoo.com":      65,
			"aol.com":        65,
			"outlook.com":    75,
			"hotmail.com":    75,
			"live.com":       75,

			// Corporate, more verifiable
			"microsoft.com": 85,
			"apple.com":     85,
		},
		fallback: 85,
	}
}

// Cap returns the maximum confidence for domain. Exact lowercase match only.
func (p *ProviderCaps) Cap(domain string) int {
	if cap, ok := p.caps[strings.ToLower(domain)]; ok {
		return cap
	}
	return p.fallback
}

// Apply bounds confidence by the domain's cap. Idempotent.
func (p *ProviderCaps) Apply(confidence int, domain string) int {
	if cap := p.Cap(domain); confidence > cap {
		return cap
	}
	return confidence
}
