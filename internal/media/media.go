// Package media stores uploaded files and returns durable URLs for them.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var ErrContentMismatch = errors.New("file content does not match its declared type")

// File is an upload waiting to be stored.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Store interface {
	Upload(ctx context.Context, f File, folder string) (string, error)
}

// Sniff reads the head of f.Body, checks that the detected content type is in
// the same family as the declared one and returns a File whose Body still
// yields every byte.
func Sniff(f File) (File, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(f.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return f, fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	declared := strings.ToLower(strings.TrimSpace(f.ContentType))
	if declared == "" {
		f.ContentType = detected.String()
	} else if !compatible(declared, detected) {
		return f, fmt.Errorf("%w: declared %s, detected %s", ErrContentMismatch, declared, detected.String())
	}
	f.Body = io.MultiReader(bytes.NewReader(head), f.Body)
	return f, nil
}

func compatible(declared string, detected *mimetype.MIME) bool {
	base, _, _ := strings.Cut(declared, ";")
	base = strings.TrimSpace(base)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(base) {
			return true
		}
	}
	family := func(s string) string {
		f, _, _ := strings.Cut(s, "/")
		return f
	}
	fam, got := family(base), family(detected.String())
	// text-like content is only detected as text/plain
	if detected.Is("text/plain") {
		return fam == "text" || base == "application/json"
	}
	// recorders label webm and ogg audio as audio/*, detection reports the container
	if fam == "audio" && (got == "video" || detected.Is("application/ogg")) {
		return true
	}
	return fam != "application" && fam == got
}

// DiskStore writes files under dir and serves them from baseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) Upload(ctx context.Context, f File, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folder = filepath.Clean("/" + folder)[1:]
	if err := os.MkdirAll(filepath.Join(s.dir, folder), 0o755); err != nil {
		return "", fmt.Errorf("creating folder: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	if ext == "" {
		if m := mimetype.Lookup(f.ContentType); m != nil {
			ext = m.Extension()
		}
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, folder, name)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.Copy(out, f.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing file: %w", err)
	}
	return s.baseURL + "/" + filepath.ToSlash(filepath.Join(folder, name)), nil
}
