package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/service"
	"github.com/vedran77/hive/internal/transport/http/middleware"
	"github.com/vedran77/hive/pkg/validator"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	log            logrus.FieldLogger
}

func NewProfileHandler(profileService *service.ProfileService, log logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, log: log}
}

func (h *ProfileHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	h.get(w, r, userID, userID)
}

// Get shows another user's profile through their privacy settings.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, middleware.GetUserID(r.Context()), r.PathValue("uid"))
}

func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, viewerID, userID string) {
	view, err := h.profileService.GetProfile(r.Context(), viewerID, userID)
	if err != nil {
		writeServiceError(w, h.log, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.UpdateProfileInput
	if !decode(w, r, &input) {
		return
	}

	if errs := validator.ValidateProfile(input.DisplayName, input.Bio, input.Hobbies, input.Tags); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	view, err := h.profileService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	f, ok := readUpload(w, r, compose.Avatars.MaxBytes)
	if !ok {
		return
	}
	defer f.Close()

	user, err := h.profileService.UploadAvatar(r.Context(), userID, f.File)
	if err != nil {
		writeServiceError(w, h.log, "upload avatar", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) GetMuteSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	settings, err := h.profileService.GetMuteSettings(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "get mute settings", err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

func (h *ProfileHandler) UpdateMuteSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input domain.MuteSettings
	if !decode(w, r, &input) {
		return
	}

	settings, err := h.profileService.UpdateMuteSettings(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, "update mute settings", err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

func (h *ProfileHandler) ListRestrictedWords(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	words, err := h.profileService.ListRestrictedWords(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list restricted words", err)
		return
	}

	if words == nil {
		words = []domain.RestrictedWord{}
	}

	writeJSON(w, http.StatusOK, words)
}

func (h *ProfileHandler) SetRestrictedWords(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var body struct {
		Words []domain.RestrictedWord `json:"words"`
	}
	if !decode(w, r, &body) {
		return
	}

	if errs := validator.ValidateRestrictedWords(body.Words); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	words, err := h.profileService.SetRestrictedWords(r.Context(), userID, body.Words)
	if err != nil {
		writeServiceError(w, h.log, "set restricted words", err)
		return
	}

	if words == nil {
		words = []domain.RestrictedWord{}
	}

	writeJSON(w, http.StatusOK, words)
}
