package compose

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/vedran77/hive/internal/domain"
)

const MaxTextLength = 4000

var (
	ErrEmptyMessage       = errors.New("message is empty")
	ErrMessageTooLong     = errors.New("message is too long")
	ErrUnknownType        = errors.New("unknown message type")
	ErrPayloadMismatch    = errors.New("payload does not match message type")
	ErrFileTooLarge       = errors.New("file is too large")
	ErrFileTypeNotAllowed = errors.New("file type is not allowed")
)

// TypeFromMIME derives the message type of an attachment.
func TypeFromMIME(contentType string) domain.MessageType {
	base := baseType(contentType)
	switch {
	case strings.HasPrefix(base, "image/"):
		return domain.MessageImage
	case strings.HasPrefix(base, "audio/"):
		return domain.MessageVoice
	}
	return domain.MessageFile
}

// ValidatePayload checks that exactly the payload fields of m.Type are set.
func ValidatePayload(m *domain.Message) error {
	hasText := strings.TrimSpace(m.Text) != ""
	hasFile := m.FileURL != "" || m.FileName != "" || m.FileType != ""
	hasGIF := m.GIFURL != "" || m.GIFID != "" || m.GIFTinyURL != "" || m.GIFContentDescription != ""

	switch m.Type {
	case domain.MessageText:
		if !hasText {
			return ErrEmptyMessage
		}
		if utf8.RuneCountInString(m.Text) > MaxTextLength {
			return ErrMessageTooLong
		}
		if hasFile || hasGIF {
			return fmt.Errorf("%w: text message carries attachment fields", ErrPayloadMismatch)
		}
	case domain.MessageImage, domain.MessageFile, domain.MessageVoice:
		if m.FileURL == "" || m.FileName == "" || m.FileType == "" {
			return fmt.Errorf("%w: %s needs file url, name and type", ErrPayloadMismatch, m.Type)
		}
		if m.Text != "" || hasGIF {
			return fmt.Errorf("%w: %s carries other payload fields", ErrPayloadMismatch, m.Type)
		}
		if TypeFromMIME(m.FileType) != m.Type {
			return fmt.Errorf("%w: %s does not match %s", ErrPayloadMismatch, m.FileType, m.Type)
		}
	case domain.MessageGIF:
		if m.GIFURL == "" || m.GIFID == "" {
			return fmt.Errorf("%w: gif needs url and id", ErrPayloadMismatch)
		}
		if m.Text != "" || hasFile {
			return fmt.Errorf("%w: gif carries other payload fields", ErrPayloadMismatch)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}

// AttachmentPolicy bounds an upload by size and content type. Allowed entries
// ending in "/*" match a whole family.
type AttachmentPolicy struct {
	MaxBytes int64
	Allowed  []string
}

var (
	ChatAttachments = AttachmentPolicy{
		MaxBytes: 20 << 20,
		Allowed: []string{
			"image/*",
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"text/plain",
			"audio/mpeg",
			"audio/mp4",
			"audio/ogg",
			"audio/wav",
			"audio/webm",
			"audio/aac",
		},
	}
	Avatars = AttachmentPolicy{
		MaxBytes: 2 << 20,
		Allowed:  []string{"image/*"},
	}
	CommunityLogos = AttachmentPolicy{
		MaxBytes: 5 << 20,
		Allowed:  []string{"image/*"},
	}
)

func (p AttachmentPolicy) Check(size int64, contentType string) error {
	if size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, size, p.MaxBytes)
	}
	if !p.Allows(contentType) {
		return fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, contentType)
	}
	return nil
}

func (p AttachmentPolicy) Allows(contentType string) bool {
	base := baseType(contentType)
	if base == "" {
		return false
	}
	for _, a := range p.Allowed {
		if family, ok := strings.CutSuffix(a, "/*"); ok {
			if strings.HasPrefix(base, family+"/") {
				return true
			}
			continue
		}
		if a == base {
			return true
		}
	}
	return false
}

func baseType(contentType string) string {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return base
}
