// Package uploads persists user-submitted files into the storage
// backend under unique names.
package uploads

import (
	"context"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/johnjclub/johnjclub/pkg/storage"
	"github.com/pkg/errors"
)

// allowed image content types for raw uploads. Anything else is
// rejected before it hits storage.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// SaveImage stores an uploaded image under prefix with a UUID-based
// name and returns the storage path. The content type is sniffed from
// the bytes, not trusted from the request.
func SaveImage(ctx context.Context, store storage.Backend, prefix string, file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", errors.WithStack(err)
	}

	mtype := mimetype.Detect(data)
	if !allowedImageTypes[mtype.String()] {
		return "", errors.Errorf("unsupported image type: %s", mtype.String())
	}

	name := uuid.NewString() + normalizedExt(file.Filename, mtype.Extension())
	objectPath := path.Join(prefix, name)

	if err := store.Save(ctx, objectPath, mtype.String(), data); err != nil {
		return "", err
	}
	return objectPath, nil
}

func normalizedExt(filename, sniffed string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = sniffed
	}
	return ext
}
