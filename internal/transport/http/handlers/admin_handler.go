package handlers

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/jobs"
	"github.com/vedran77/hive/internal/service"
)

// AdminHandler exposes operator endpoints. Routes are wrapped with AdminOnly.
type AdminHandler struct {
	runner    *jobs.Runner
	retention *service.RetentionService
	log       logrus.FieldLogger
}

func NewAdminHandler(runner *jobs.Runner, retention *service.RetentionService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{runner: runner, retention: retention, log: log}
}

// RunRetention runs the cleanup job now and returns its result.
func (h *AdminHandler) RunRetention(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.RunOnDemand(r.Context(), service.RetentionJobName)
	if err != nil {
		writeServiceError(w, h.log, "run retention", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) ListRetentionRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	runs, err := h.retention.History(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.log, "list retention runs", err)
		return
	}

	if runs == nil {
		runs = []domain.CleanupResult{}
	}

	writeJSON(w, http.StatusOK, runs)
}
