package probe

import (
	"testing"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

func TestFingerprintBanner(t *testing.T) {
	tests := []struct {
		name            string
		banner          string
		family          string
		supportsTiming  bool
		supportsQueueID bool
		variance        float64
	}{
		{
			name:            "postfix",
			banner:          "220 mail.example.com ESMTP Postfix (Ubuntu)",
			family:          models.FamilyPostfix,
			supportsTiming:  true,
			supportsQueueID: true,
			variance:        0.3,
		},
		{
			name:            "exchange by product name",
			banner:          "220 EX01.corp.local Microsoft ESMTP MAIL Service ready",
			family:          models.FamilyExchange,
			supportsTiming:  false,
			supportsQueueID: true,
			variance:        0.1,
		},
		{
			name:            "mimecast gateway",
			banner:          "220 eu-smtp-1.mimecast.com ESMTP; Tue, 12 Mar 2024",
			family:          models.FamilyMimecast,
			supportsTiming:  false,
			supportsQueueID: false,
			variance:        0.0,
		},
		{
			name:            "sendgrid",
			banner:          "220 SG ESMTP service ready at ismtpd0001p1iad2.sendgrid.net",
			family:          models.FamilySendgrid,
			supportsTiming:  false,
			supportsQueueID: true,
			variance:        0.0,
		},
		{
			name:            "google by aspmx keyword",
			banner:          "220 ASPMX.L.GOOGLE.COM ESMTP",
			family:          models.FamilyGoogle,
			supportsTiming:  true,
			supportsQueueID: false,
			variance:        0.2,
		},
		{
			name:            "unknown mta",
			banner:          "220 mail.selfhosted.example ESMTP Exim 4.96",
			family:          models.FamilyUnknown,
			supportsTiming:  true,
			supportsQueueID: true,
			variance:        0.4,
		},
		{
			name:            "empty banner",
			banner:          "",
			family:          models.FamilyUnknown,
			supportsTiming:  true,
			supportsQueueID: true,
			variance:        0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FingerprintBanner(tt.banner)
			if got.Family != tt.family {
				t.Errorf("family = %q, want %q", got.Family, tt.family)
			}
			if got.SupportsTiming != tt.supportsTiming {
				t.Errorf("supports_timing = %v, want %v", got.SupportsTiming, tt.supportsTiming)
			}
			if got.SupportsQueueID != tt.supportsQueueID {
				t.Errorf("supports_queue_id = %v, want %v", got.SupportsQueueID, tt.supportsQueueID)
			}
			if got.TimingVariance != tt.variance {
				t.Errorf("timing_variance = %v, want %v", got.TimingVariance, tt.variance)
			}
		})
	}
}

func TestFingerprintBannerOrder(t *testing.T) {
	// When two families' keywords both appear, the earlier pattern wins.
	got := FingerprintBanner("220 hybrid.example.com Postfix relay for Microsoft tenant")
	if got.Family != models.FamilyPostfix {
		t.Errorf("family = %q, want postfix (first match wins)", got.Family)
	}
}
