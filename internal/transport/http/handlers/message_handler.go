package handlers

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/service"
	"github.com/vedran77/hive/internal/transport/http/middleware"
)

// MessageHandler serves both channel and conversation threads. Channel routes
// carry {id} and {cid}, conversation routes carry {conv}.
type MessageHandler struct {
	messageService *service.MessageService
	log            logrus.FieldLogger
}

func NewMessageHandler(messageService *service.MessageService, log logrus.FieldLogger) *MessageHandler {
	return &MessageHandler{messageService: messageService, log: log}
}

func threadFrom(r *http.Request) addressing.Thread {
	if conv := r.PathValue("conv"); conv != "" {
		return addressing.DirectThread(conv)
	}
	return addressing.ChannelThread(r.PathValue("id"), r.PathValue("cid"))
}

func (h *MessageHandler) thread(w http.ResponseWriter, r *http.Request) (addressing.Thread, bool) {
	thread := threadFrom(r)
	if err := thread.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid thread")
		return thread, false
	}
	return thread, true
}

type sendRequest struct {
	Type             domain.MessageType `json:"type"`
	Text             string             `json:"text"`
	ReplyToMessageID string             `json:"reply_to_message_id,omitempty"`
	domain.GIF
}

// Send accepts text and gif messages. Files go through SendAttachment.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())
	thread, ok := h.thread(w, r)
	if !ok {
		return
	}

	var req sendRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		msg *domain.Message
		err error
	)
	switch req.Type {
	case domain.MessageText, "":
		msg, err = h.messageService.SendText(r.Context(), actor, thread, service.SendTextInput{
			Text:             req.Text,
			ReplyToMessageID: req.ReplyToMessageID,
		})
	case domain.MessageGIF:
		msg, err = h.messageService.SendGIF(r.Context(), actor, thread, service.SendGIFInput{
			GIF:              req.GIF,
			ReplyToMessageID: req.ReplyToMessageID,
		})
	default:
		writeError(w, http.StatusBadRequest, "UNKNOWN_TYPE", "Use the attachments endpoint for files")
		return
	}
	if err != nil {
		writeServiceError(w, h.log, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) SendAttachment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())
	thread, ok := h.thread(w, r)
	if !ok {
		return
	}

	f, ok := readUpload(w, r, compose.ChatAttachments.MaxBytes)
	if !ok {
		return
	}
	defer f.Close()

	msg, err := h.messageService.SendAttachment(r.Context(), actor, thread, f.File, r.FormValue("reply_to_message_id"))
	if err != nil {
		writeServiceError(w, h.log, "send attachment", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	thread, ok := h.thread(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	input := service.ListMessagesInput{Query: q.Get("q")}
	input.Pinned, _ = strconv.ParseBool(q.Get("pinned"))
	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			input.Limit = l
		}
	}

	resp, err := h.messageService.List(r.Context(), userID, thread, input)
	if err != nil {
		writeServiceError(w, h.log, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *MessageHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	thread, ok := h.thread(w, r)
	if !ok {
		return
	}

	var body struct {
		Emoji string `json:"emoji"`
	}
	if !decode(w, r, &body) {
		return
	}

	msg, err := h.messageService.ToggleReaction(r.Context(), userID, thread, r.PathValue("mid"), body.Emoji)
	if err != nil {
		writeServiceError(w, h.log, "toggle reaction", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	thread, ok := h.thread(w, r)
	if !ok {
		return
	}

	msg, err := h.messageService.TogglePin(r.Context(), userID, thread, r.PathValue("mid"))
	if err != nil {
		writeServiceError(w, h.log, "toggle pin", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) Forward(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())
	thread, ok := h.thread(w, r)
	if !ok {
		return
	}

	var input service.ForwardInput
	if r.ContentLength != 0 && !decode(w, r, &input) {
		return
	}

	msg, err := h.messageService.Forward(r.Context(), actor, thread, r.PathValue("mid"), input)
	if err != nil {
		writeServiceError(w, h.log, "forward message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	thread, ok := h.thread(w, r)
	if !ok {
		return
	}

	if err := h.messageService.Delete(r.Context(), userID, thread, r.PathValue("mid")); err != nil {
		writeServiceError(w, h.log, "delete message", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
