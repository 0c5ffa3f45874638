package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/service"
	"github.com/vedran77/hive/internal/transport/http/middleware"
	"github.com/vedran77/hive/pkg/validator"
)

type CommunityHandler struct {
	communityService *service.CommunityService
	log              logrus.FieldLogger
}

func NewCommunityHandler(communityService *service.CommunityService, log logrus.FieldLogger) *CommunityHandler {
	return &CommunityHandler{communityService: communityService, log: log}
}

func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateCommunityInput
	if !decode(w, r, &input) {
		return
	}

	if errs := validator.ValidateCommunity(input.Name, input.Description, input.Tags); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	c, err := h.communityService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, "create community", err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *CommunityHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	communities, err := h.communityService.ListVisible(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list communities", err)
		return
	}

	if communities == nil {
		communities = []domain.Community{}
	}

	writeJSON(w, http.StatusOK, communities)
}

func (h *CommunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	c, err := h.communityService.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, "get community", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CommunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.UpdateCommunityInput
	if !decode(w, r, &input) {
		return
	}

	if errs := validator.ValidateCommunityUpdate(input.Name, input.Description, input.Tags); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	c, err := h.communityService.Update(r.Context(), userID, r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, h.log, "update community", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CommunityHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	f, ok := readUpload(w, r, compose.CommunityLogos.MaxBytes)
	if !ok {
		return
	}
	defer f.Close()

	c, err := h.communityService.UploadLogo(r.Context(), userID, r.PathValue("id"), f.File)
	if err != nil {
		writeServiceError(w, h.log, "upload logo", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CommunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.communityService.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, h.log, "delete community", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CommunityHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	c, err := h.communityService.Join(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, "join community", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CommunityHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if _, err := h.communityService.Leave(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, h.log, "leave community", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CommunityHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	requesterID := middleware.GetUserID(r.Context())

	var body struct {
		UserID string `json:"user_id"`
	}
	if !decode(w, r, &body) {
		return
	}

	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	c, err := h.communityService.AddMember(r.Context(), requesterID, r.PathValue("id"), body.UserID)
	if err != nil {
		writeServiceError(w, h.log, "add member", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CommunityHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	members, err := h.communityService.ListMembers(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, "list members", err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

func (h *CommunityHandler) Promote(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())

	c, err := h.communityService.Promote(r.Context(), actor, r.PathValue("id"), r.PathValue("uid"))
	if err != nil {
		writeServiceError(w, h.log, "promote member", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CommunityHandler) Demote(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())

	c, err := h.communityService.Demote(r.Context(), actor, r.PathValue("id"), r.PathValue("uid"))
	if err != nil {
		writeServiceError(w, h.log, "demote member", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CommunityHandler) Kick(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "kick member", h.communityService.Kick)
}

func (h *CommunityHandler) Ban(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "ban member", h.communityService.Ban)
}

func (h *CommunityHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "unban member", h.communityService.Unban)
}

type moderation func(ctx context.Context, actorID, id, targetID string) (*domain.Community, error)

func (h *CommunityHandler) moderate(w http.ResponseWriter, r *http.Request, op string, fn moderation) {
	actorID := middleware.GetUserID(r.Context())

	c, err := fn(r.Context(), actorID, r.PathValue("id"), r.PathValue("uid"))
	if err != nil {
		writeServiceError(w, h.log, op, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}
