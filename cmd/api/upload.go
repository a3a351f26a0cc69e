package main

import (
	"encoding/csv"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/queue"
)

type uploadResponse struct {
	JobID     string `json:"job_id"`
	TotalRows int    `json:"total_rows"`
	Message   string `json:"message"`
}

// handleUpload accepts a CSV with one address per row (first column),
// creates the job and enqueues a task per address.
func (a *api) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		a.writeError(w, http.StatusBadRequest, "file too large or malformed")
		return
	}

	customerID := r.FormValue("customer_id")
	if customerID == "" || len(customerID) > maxCustomerIDLen {
		a.writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "missing 'file' parameter in form data")
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var emails []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			a.writeError(w, http.StatusBadRequest, "invalid CSV format")
			return
		}
		if len(record) > 0 && record[0] != "" {
			emails = append(emails, record[0])
		}
	}
	if len(emails) == 0 {
		a.writeError(w, http.StatusBadRequest, "CSV is empty")
		return
	}

	ctx := r.Context()
	jobID := uuid.New().String()
	if err := a.jobs.CreateJob(ctx, jobID, customerID, len(emails)); err != nil {
		a.log.Error("create job failed", zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	tasks := make([]queue.Task, 0, len(emails))
	for _, email := range emails {
		tasks = append(tasks, queue.Task{JobID: jobID, Email: email, CustomerID: customerID})
	}
	if err := a.tasks.Push(ctx, tasks...); err != nil {
		a.log.Error("enqueue job failed", zap.String("job_id", jobID), zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	a.writeJSON(w, http.StatusOK, uploadResponse{
		JobID:     jobID,
		TotalRows: len(emails),
		Message:   "job created, processing started",
	})
}
