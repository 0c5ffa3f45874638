package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/service"
	"github.com/vedran77/hive/internal/transport/http/middleware"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
	log                 logrus.FieldLogger
}

func NewConversationHandler(conversationService *service.ConversationService, log logrus.FieldLogger) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService, log: log}
}

// Open returns the conversation with the peer, creating it if needed. An
// empty or own user_id opens Saved Messages.
func (h *ConversationHandler) Open(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())

	var body struct {
		UserID string `json:"user_id"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.UserID == "" {
		body.UserID = actor.UID
	}

	conv, err := h.conversationService.Open(r.Context(), actor, body.UserID)
	if err != nil {
		writeServiceError(w, h.log, "open conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.conversationService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list conversations", err)
		return
	}

	if convs == nil {
		convs = []domain.ConversationSummary{}
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conv, err := h.conversationService.Get(r.Context(), userID, r.PathValue("conv"))
	if err != nil {
		writeServiceError(w, h.log, "get conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	n, err := h.conversationService.MarkAsRead(r.Context(), userID, r.PathValue("conv"))
	if err != nil {
		writeServiceError(w, h.log, "mark conversation read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}
