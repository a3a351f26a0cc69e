package models

type VerificationStatus string
type ResultSource string
type TimingStatus string

const (
	StatusValid   VerificationStatus = "valid"
	StatusInvalid VerificationStatus = "invalid"
	StatusRisky   VerificationStatus = "risky"
	StatusUnknown VerificationStatus = "unknown"

	SourceOmkar  ResultSource = "omkar"
	SourceProbe  ResultSource = "probe_engine"
	SourceSystem ResultSource = "system"
	SourceCache  ResultSource = "cache"

	TimingValid            TimingStatus = "valid"
	TimingCatchAll         TimingStatus = "catch_all"
	TimingAmbiguous        TimingStatus = "ambiguous"
	TimingInsufficientData TimingStatus = "insufficient_data"
)

// MTA families recognized by the banner fingerprinter.
const (
	FamilyPostfix  = "postfix"
	FamilyExchange = "exchange"
	FamilyMimecast = "mimecast"
	FamilySendgrid = "sendgrid"
	FamilyGoogle   = "google"
	FamilyUnknown  = "unknown"
)

type MTAInfo struct {
	Family          string  `json:"family"`
	SupportsTiming  bool    `json:"supports_timing"`
	SupportsQueueID bool    `json:"supports_queue_id"`
	TimingVariance  float64 `json:"timing_variance"`
}

type QueueIDSignal struct {
	Detected bool   `json:"detected"`
	Pattern  string `json:"pattern,omitempty"`
	Value    string `json:"value,omitempty"`
}

type TimingVerdict struct {
	Status     TimingStatus `json:"status"`
	Ratio      float64      `json:"ratio"`
	Confidence int          `json:"confidence"`
	Variance   float64      `json:"variance"`
}

type SPFSignal struct {
	Present bool   `json:"present"`
	Strict  bool   `json:"strict"`
	Text    string `json:"text,omitempty"`
}

type DMARCSignal struct {
	Present bool   `json:"present"`
	Text    string `json:"text,omitempty"`
}

type MXHost struct {
	Priority int    `json:"priority"`
	Host     string `json:"host"`
}

type MXSignal struct {
	Present bool     `json:"present"`
	Count   int      `json:"count"`
	Hosts   []MXHost `json:"hosts"`
}

// DNSSnapshot is the full policy picture for one domain, served by
// GET /dns/{domain} and the foxctl dns command.
type DNSSnapshot struct {
	Domain          string      `json:"domain"`
	SPF             SPFSignal   `json:"spf"`
	DMARC           DMARCSignal `json:"dmarc"`
	MX              MXSignal    `json:"mx"`
	Provider        string      `json:"provider,omitempty"`
	ReputationScore int         `json:"reputation_score"`
}

// Signals is everything the probe engine extracted from one SMTP session.
type Signals struct {
	MTA          MTAInfo       `json:"mta"`
	FakeRejected bool          `json:"fake_rejected"`
	QueueID      QueueIDSignal `json:"queue_id"`
	Timing       TimingVerdict `json:"timing_ratio"`
	SPF          SPFSignal     `json:"spf"`
	RealCode     int           `json:"real_code"`
	FakeCodes    []int         `json:"fake_codes"`
	RealTimeMs   int64         `json:"real_time_ms"`
	FakeTimesMs  []int64       `json:"fake_times_ms"`
}

type VerifyResult struct {
	Email       string             `json:"email"`
	Status      VerificationStatus `json:"status"`
	Deliverable *bool              `json:"deliverable,omitempty"`
	Confidence  int                `json:"confidence"`
	CatchAll    *bool              `json:"catch_all,omitempty"`
	RetryAfter  *int               `json:"retry_after,omitempty"`
	Source      ResultSource       `json:"source"`
	Reason      string             `json:"reason,omitempty"`

	// Classification extras
	Free       bool `json:"free,omitempty"`
	Role       bool `json:"role,omitempty"`
	Disposable bool `json:"disposable,omitempty"`

	Signals *Signals `json:"signals,omitempty"`
}

type VerifyRequest struct {
	Emails     []string `json:"emails"`
	CustomerID string   `json:"customer_id"`
	UseProbe   *bool    `json:"use_probe,omitempty"`
	IPIndex    *int     `json:"ip_index,omitempty"`
}

// Probe defaults to on when the request leaves it unset.
func (r *VerifyRequest) ProbeEnabled() bool {
	return r.UseProbe == nil || *r.UseProbe
}

type VerifyResponse struct {
	Results          []VerifyResult `json:"results"`
	TotalProcessed   int            `json:"total_processed"`
	TotalErrors      int            `json:"total_errors"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
}
