package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/vedran77/hive/internal/media"
)

// multipartOverhead leaves room for form boundaries and fields next to the file.
const multipartOverhead = 1 << 20

type upload struct {
	media.File
	file multipart.File
}

func (u *upload) Close() error {
	return u.file.Close()
}

// readUpload reads the "file" part of a multipart request. The service
// applies the attachment policy; maxBytes only stops oversized bodies early.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File is too large")
		} else {
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid multipart body")
		}
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "A file is required")
		return nil, false
	}

	return &upload{
		File: media.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		},
		file: file,
	}, true
}
