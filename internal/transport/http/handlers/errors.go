package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/jobs"
	"github.com/vedran77/hive/internal/media"
	"github.com/vedran77/hive/internal/membership"
	"github.com/vedran77/hive/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{service.ErrCommunityNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrChannelNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrConversationNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrMessageNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},

	{service.ErrAccessDenied, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrNotParticipant, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrNotMessageOwner, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrOpenCommunityImmutable, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrMessageTypeNotAllowed, http.StatusForbidden, "MESSAGE_TYPE_NOT_ALLOWED"},
	{membership.ErrInsufficientRole, http.StatusForbidden, "INSUFFICIENT_ROLE"},
	{membership.ErrOwnerImmutable, http.StatusForbidden, "OWNER_IMMUTABLE"},
	{membership.ErrBanned, http.StatusForbidden, "BANNED"},
	{membership.ErrPrivateCommunity, http.StatusForbidden, "PRIVATE_COMMUNITY"},

	{service.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{service.ErrChannelNameTaken, http.StatusConflict, "CHANNEL_NAME_TAKEN"},
	{membership.ErrNotMember, http.StatusConflict, "NOT_MEMBER"},
	{membership.ErrAlreadyHighest, http.StatusConflict, "ALREADY_HIGHEST"},
	{membership.ErrAlreadyLowest, http.StatusConflict, "ALREADY_LOWEST"},
	{jobs.ErrJobRunning, http.StatusConflict, "JOB_RUNNING"},

	{compose.ErrEmptyMessage, http.StatusBadRequest, "EMPTY_MESSAGE"},
	{compose.ErrMessageTooLong, http.StatusBadRequest, "MESSAGE_TOO_LONG"},
	{compose.ErrUnknownType, http.StatusBadRequest, "UNKNOWN_TYPE"},
	{compose.ErrPayloadMismatch, http.StatusBadRequest, "PAYLOAD_MISMATCH"},
	{service.ErrInvalidReaction, http.StatusBadRequest, "INVALID_REACTION"},
	{addressing.ErrInvalidConversationID, http.StatusBadRequest, "INVALID_ID"},
	{addressing.ErrInvalidThread, http.StatusBadRequest, "INVALID_ID"},

	{compose.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	{compose.ErrFileTypeNotAllowed, http.StatusUnsupportedMediaType, "FILE_TYPE_NOT_ALLOWED"},
	{media.ErrContentMismatch, http.StatusUnsupportedMediaType, "FILE_TYPE_NOT_ALLOWED"},
	{service.ErrUploadFailed, http.StatusBadGateway, "UPLOAD_FAILED"},
}

// writeServiceError maps a service error to its response. Unknown errors are
// logged under op and answered with 500.
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, op string, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, capitalize(m.err.Error()))
			return
		}
	}
	log.WithError(err).Error(op)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
