package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/service"
	"github.com/vedran77/hive/internal/transport/http/middleware"
	"github.com/vedran77/hive/pkg/validator"
)

type ChannelHandler struct {
	channelService *service.ChannelService
	log            logrus.FieldLogger
}

func NewChannelHandler(channelService *service.ChannelService, log logrus.FieldLogger) *ChannelHandler {
	return &ChannelHandler{channelService: channelService, log: log}
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateChannelInput
	if !decode(w, r, &input) {
		return
	}

	if errs := validator.ValidateChannel(input.Name, input.IconName, input.AllowedRoles, input.AllowedMessageTypes); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	ch, err := h.channelService.Create(r.Context(), userID, r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, h.log, "create channel", err)
		return
	}

	writeJSON(w, http.StatusCreated, ch)
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	channels, err := h.channelService.List(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, "list channels", err)
		return
	}

	if channels == nil {
		channels = []domain.Channel{}
	}

	writeJSON(w, http.StatusOK, channels)
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	ch, err := h.channelService.Get(r.Context(), userID, r.PathValue("id"), r.PathValue("cid"))
	if err != nil {
		writeServiceError(w, h.log, "get channel", err)
		return
	}

	writeJSON(w, http.StatusOK, ch)
}

func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.channelService.Delete(r.Context(), userID, r.PathValue("id"), r.PathValue("cid")); err != nil {
		writeServiceError(w, h.log, "delete channel", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
