package probe

import (
	"regexp"
	"strings"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

type queuePattern struct {
	re   *regexp.Regexp
	name string
}

// Tried in order; first match wins.
var queuePatterns = []queuePattern{
	// Postfix: 10-14 hex chars
	{regexp.MustCompile(`[0-9A-F]{10,14}`), "postfix_hex"},
	// Sendmail/Generic: 14+ alphanumeric
	{regexp.MustCompile(`[A-Za-z0-9]{14,}`), "generic_id"},
	// With slashes (some servers)
	{regexp.MustCompile(`[A-Za-z0-9]{8,}/[A-Za-z0-9]{8,}`), "path_id"},
	// UUID format
	{regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`), "uuid"},
}

// DetectQueueID scans an SMTP reply for a message queue identifier.
// Queue IDs indicate the server actually queued something, which correlates
// with a real accepting mailbox.
func DetectQueueID(message string) models.QueueIDSignal {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.QueueIDSignal{}
	}

	for _, p := range queuePatterns {
		if m := p.re.FindString(message); m != "" {
			return models.QueueIDSignal{Detected: true, Pattern: p.name, Value: m}
		}
	}
	return models.QueueIDSignal{}
}
