package main

import (
	"errors"
	"net/http"

	"github.com/ranawaqas-khan/jumpingfox/internal/store"
)

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		a.writeError(w, http.StatusBadRequest, "missing 'id' parameter")
		return
	}

	job, err := a.jobs.Job(r.Context(), jobID)
	if errors.Is(err, store.ErrJobNotFound) {
		a.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	a.writeJSON(w, http.StatusOK, job)
}
