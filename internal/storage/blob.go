package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const objectKeyRoot = "files"

var ErrObjectNotFound = errors.New("object not found")

// BlobStore holds file bytes under opaque keys. Size must not require
// reading the object body.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Size(ctx context.Context, key string) (int64, error)
}

// BuildObjectKey lays objects out as files/YYYY/MM/DD/<owner>/<file id>/<name>.
// The file id segment keeps keys unique when names repeat.
func BuildObjectKey(ownerID, fileID uuid.UUID, name string, now time.Time) string {
	return path.Join(
		objectKeyRoot,
		now.UTC().Format("2006/01/02"),
		ownerID.String(),
		fileID.String(),
		sanitizeKeySegment(name),
	)
}

func sanitizeKeySegment(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)

	if name == "" || name == "." || name == ".." {
		return "blob"
	}
	return name
}
