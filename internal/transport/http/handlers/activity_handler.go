package handlers

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/service"
	"github.com/vedran77/hive/internal/transport/http/middleware"
)

type ActivityHandler struct {
	notificationService *service.NotificationService
	log                 logrus.FieldLogger
}

func NewActivityHandler(notificationService *service.NotificationService, log logrus.FieldLogger) *ActivityHandler {
	return &ActivityHandler{notificationService: notificationService, log: log}
}

type activityResponse struct {
	Items       []domain.ActivityItem `json:"items"`
	UnreadCount int                   `json:"unread_count"`
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	items, err := h.notificationService.List(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, h.log, "list activity", err)
		return
	}
	unread, err := h.notificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "count unread activity", err)
		return
	}

	if items == nil {
		items = []domain.ActivityItem{}
	}

	writeJSON(w, http.StatusOK, activityResponse{Items: items, UnreadCount: unread})
}

// MarkRead marks the listed ids read, or everything when ids is empty.
func (h *ActivityHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var body struct {
		IDs []string `json:"ids"`
	}
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}

	n, err := h.notificationService.MarkRead(r.Context(), userID, body.IDs)
	if err != nil {
		writeServiceError(w, h.log, "mark activity read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}
