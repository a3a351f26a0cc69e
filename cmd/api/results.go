package main

import (
	"net/http"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

func (a *api) handleResults(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		a.writeError(w, http.StatusBadRequest, "missing 'id' parameter")
		return
	}

	results, err := a.jobs.Results(r.Context(), jobID)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to fetch results")
		return
	}

	// An empty array, never null, while the job is still filling in.
	if results == nil {
		results = []models.VerifyResult{}
	}
	a.writeJSON(w, http.StatusOK, results)
}
