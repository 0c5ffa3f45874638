package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/media"
)

var ErrUploadFailed = errors.New("upload failed")

// upload sniffs f, applies policy and stores it. The returned file carries the
// effective content type.
func upload(ctx context.Context, store media.Store, policy compose.AttachmentPolicy, f media.File, folder string) (media.File, string, error) {
	f, err := inspect(f, policy)
	if err != nil {
		return f, "", err
	}
	url, err := put(ctx, store, f, folder)
	return f, url, err
}

func put(ctx context.Context, store media.Store, f media.File, folder string) (string, error) {
	if store == nil {
		return "", fmt.Errorf("%w: no media store configured", ErrUploadFailed)
	}
	url, err := store.Upload(ctx, f, folder)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return url, nil
}

// inspect sniffs f and applies policy without storing anything.
func inspect(f media.File, policy compose.AttachmentPolicy) (media.File, error) {
	f, err := media.Sniff(f)
	if err != nil {
		return f, err
	}
	return f, policy.Check(f.Size, f.ContentType)
}
