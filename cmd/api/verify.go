package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

const (
	maxBatchSize     = 1000
	maxCustomerIDLen = 255
)

func (a *api) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := validateVerifyRequest(&req); msg != "" {
		a.writeError(w, http.StatusBadRequest, msg)
		return
	}

	br := a.verifier.VerifyBatch(r.Context(), &req)

	// The whole request only turns into a 429 when every address was
	// quota-gated; partial batches stay 200 with per-result reasons.
	if qe := br.QuotaExceeded; qe != nil {
		a.writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"detail": map[string]interface{}{
				"error":    qe.Message,
				"limit":    qe.Limit,
				"used":     qe.Used,
				"reset_in": qe.ResetIn,
			},
		})
		return
	}

	a.writeJSON(w, http.StatusOK, br.Response)
}

func validateVerifyRequest(req *models.VerifyRequest) string {
	if len(req.Emails) == 0 {
		return "emails must not be empty"
	}
	if len(req.Emails) > maxBatchSize {
		return fmt.Sprintf("at most %d emails per request", maxBatchSize)
	}
	if req.CustomerID == "" {
		return "customer_id is required"
	}
	if len(req.CustomerID) > maxCustomerIDLen {
		return fmt.Sprintf("customer_id must be at most %d characters", maxCustomerIDLen)
	}
	return ""
}
