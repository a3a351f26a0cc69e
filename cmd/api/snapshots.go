package main

import (
	"net/http"
	"strings"
)

func (a *api) handleQuota(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customer_id")
	domain := strings.ToLower(r.PathValue("domain"))

	usage, err := a.quota.Usage(r.Context(), customerID, domain, a.cfg.Quota.Tier)
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "quota store unavailable")
		return
	}
	a.writeJSON(w, http.StatusOK, usage)
}

func (a *api) handleReputation(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(r.PathValue("domain"))
	a.writeJSON(w, http.StatusOK, a.reputation.Snapshot(r.Context(), domain))
}

func (a *api) handleIPHealth(w http.ResponseWriter, r *http.Request) {
	ip := r.PathValue("ip")
	domain := strings.ToLower(r.PathValue("domain"))
	a.writeJSON(w, http.StatusOK, a.iphealth.Health(r.Context(), ip, domain))
}

func (a *api) handleDNS(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(r.PathValue("domain"))
	if !strings.Contains(domain, ".") {
		a.writeError(w, http.StatusBadRequest, "malformed domain")
		return
	}
	a.writeJSON(w, http.StatusOK, a.analyzer.Analyze(r.Context(), domain))
}
