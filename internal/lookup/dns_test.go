package lookup

import (
	"context"
	"net"
	"testing"

	"github.com/foxcpp/go-mockdns"
	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

type countingResolver struct {
	inner    Resolver
	mxCalls  int
	txtCalls int
}

func (c *countingResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	c.mxCalls++
	return c.inner.LookupMX(ctx, name)
}

func (c *countingResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	c.txtCalls++
	return c.inner.LookupTXT(ctx, name)
}

func testAnalyzer(zones map[string]mockdns.Zone) (*Analyzer, *countingResolver) {
	counting := &countingResolver{inner: &mockdns.Resolver{Zones: zones}}
	return NewAnalyzer(counting, Options{}, zap.NewNop()), counting
}

func TestMXSortedAndNormalized(t *testing.T) {
	a, _ := testAnalyzer(map[string]mockdns.Zone{
		"example.com.": {
			MX: []net.MX{
				{Host: "Backup.Example.com.", Pref: 20},
				{Host: "mx1.example.com.", Pref: 5},
				{Host: "mx2.example.com.", Pref: 10},
			},
		},
	})

	hosts := a.MX(context.Background(), "Example.COM")
	if len(hosts) != 3 {
		t.Fatalf("expected 3 hosts, got %d", len(hosts))
	}
	if hosts[0].Host != "mx1.example.com" || hosts[0].Priority != 5 {
		t.Errorf("primary = %+v, want mx1.example.com/5", hosts[0])
	}
	if hosts[2].Host != "backup.example.com" {
		t.Errorf("hosts must be lowercased with trailing dot stripped, got %q", hosts[2].Host)
	}

	primary, ok := a.Primary(context.Background(), "example.com")
	if !ok || primary != "mx1.example.com" {
		t.Errorf("Primary = %q, %v", primary, ok)
	}
}

func TestMXCached(t *testing.T) {
	a, counting := testAnalyzer(map[string]mockdns.Zone{
		"example.com.": {MX: []net.MX{{Host: "mx.example.com.", Pref: 10}}},
	})

	a.MX(context.Background(), "example.com")
	a.MX(context.Background(), "example.com")

	if counting.mxCalls != 1 {
		t.Errorf("expected 1 resolver call, got %d", counting.mxCalls)
	}
}

func TestMXFailureNotNegativelyCached(t *testing.T) {
	a, counting := testAnalyzer(map[string]mockdns.Zone{})

	if hosts := a.MX(context.Background(), "nomx.example"); len(hosts) != 0 {
		t.Fatalf("expected empty result, got %v", hosts)
	}
	a.MX(context.Background(), "nomx.example")

	if counting.mxCalls != 2 {
		t.Errorf("failures must not be cached; resolver calls = %d", counting.mxCalls)
	}
}

func TestSPF(t *testing.T) {
	a, _ := testAnalyzer(map[string]mockdns.Zone{
		"strict.example.": {TXT: []string{"v=spf1 include:_spf.example.com -all"}},
		"soft.example.":   {TXT: []string{"other-verification=abc", "v=spf1 include:_spf.example.com ~all"}},
		"none.example.":   {TXT: []string{"some-unrelated-token"}},
	})
	ctx := context.Background()

	spf := a.SPF(ctx, "strict.example")
	if !spf.Present || !spf.Strict {
		t.Errorf("strict.example: got %+v, want present+strict", spf)
	}

	spf = a.SPF(ctx, "soft.example")
	if !spf.Present || spf.Strict {
		t.Errorf("soft.example: got %+v, want present, not strict", spf)
	}

	spf = a.SPF(ctx, "none.example")
	if spf.Present {
		t.Errorf("none.example: got %+v, want absent", spf)
	}

	spf = a.SPF(ctx, "missing.example")
	if spf.Present || spf.Strict {
		t.Errorf("missing.example: lookup error must yield empty signal, got %+v", spf)
	}
}

func TestDMARC(t *testing.T) {
	a, _ := testAnalyzer(map[string]mockdns.Zone{
		"_dmarc.managed.example.": {TXT: []string{"v=DMARC1; p=reject"}},
		"_dmarc.odd.example.":     {TXT: []string{"not-a-dmarc-record"}},
	})
	ctx := context.Background()

	if d := a.DMARC(ctx, "managed.example"); !d.Present {
		t.Errorf("managed.example: want present, got %+v", d)
	}
	if d := a.DMARC(ctx, "odd.example"); d.Present {
		t.Errorf("odd.example: non-DMARC TXT must not count, got %+v", d)
	}
	if d := a.DMARC(ctx, "bare.example"); d.Present {
		t.Errorf("bare.example: want absent, got %+v", d)
	}
}

func TestReputationScore(t *testing.T) {
	tests := []struct {
		name  string
		spf   models.SPFSignal
		dmarc models.DMARCSignal
		mx    models.MXSignal
		want  int
	}{
		{"nothing", models.SPFSignal{}, models.DMARCSignal{}, models.MXSignal{}, 50},
		{"spf only", models.SPFSignal{Present: true}, models.DMARCSignal{}, models.MXSignal{}, 65},
		{"spf strict", models.SPFSignal{Present: true, Strict: true}, models.DMARCSignal{}, models.MXSignal{}, 75},
		{"spf strict dmarc", models.SPFSignal{Present: true, Strict: true}, models.DMARCSignal{Present: true}, models.MXSignal{}, 90},
		{"single mx no bonus", models.SPFSignal{}, models.DMARCSignal{}, models.MXSignal{Present: true, Count: 1}, 50},
		{"multi mx", models.SPFSignal{}, models.DMARCSignal{}, models.MXSignal{Present: true, Count: 3}, 60},
		{"everything capped", models.SPFSignal{Present: true, Strict: true}, models.DMARCSignal{Present: true}, models.MXSignal{Present: true, Count: 2}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReputationScore(tt.spf, tt.dmarc, tt.mx); got != tt.want {
				t.Errorf("ReputationScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestESPFromMX(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"aspmx.l.google.com", "google"},
		{"gmail-smtp-in.l.google.com", "google"},
		{"corp-mail.protection.outlook.com", "microsoft"},
		{"mx.zoho.com", "zoho"},
		{"eu-smtp-inbound-1.mimecast.com", "mimecast"},
		{"mxa-001.pphosted.com", "proofpoint"},
		{"d12345a.ess.barracudanetworks.com", "barracuda"},
		{"mail.selfhosted.example", "unknown"},
	}

	for _, tt := range tests {
		got := ESPFromMX([]models.MXHost{{Priority: 10, Host: tt.host}})
		if got != tt.want {
			t.Errorf("ESPFromMX(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}

	if got := ESPFromMX(nil); got != "unknown" {
		t.Errorf("ESPFromMX(nil) = %q, want unknown", got)
	}
}

func TestAnalyze(t *testing.T) {
	a, _ := testAnalyzer(map[string]mockdns.Zone{
		"acme.example.": {
			MX:  []net.MX{{Host: "aspmx.l.google.com.", Pref: 1}, {Host: "alt1.aspmx.l.google.com.", Pref: 5}},
			TXT: []string{"v=spf1 include:_spf.google.com -all"},
		},
		"_dmarc.acme.example.": {TXT: []string{"v=DMARC1; p=quarantine"}},
	})

	snap := a.Analyze(context.Background(), "ACME.example")

	if snap.Domain != "acme.example" {
		t.Errorf("domain = %q", snap.Domain)
	}
	if !snap.SPF.Present || !snap.SPF.Strict {
		t.Errorf("spf = %+v", snap.SPF)
	}
	if !snap.DMARC.Present {
		t.Errorf("dmarc = %+v", snap.DMARC)
	}
	if !snap.MX.Present || snap.MX.Count != 2 {
		t.Errorf("mx = %+v", snap.MX)
	}
	if snap.Provider != "google" {
		t.Errorf("provider = %q, want google", snap.Provider)
	}
	// 50 + 15 SPF + 10 strict + 15 DMARC + 10 multi-MX = 100
	if snap.ReputationScore != 100 {
		t.Errorf("reputation = %d, want 100", snap.ReputationScore)
	}
}
