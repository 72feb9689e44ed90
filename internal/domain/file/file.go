package file

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMimeType = "application/octet-stream"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

type Folder struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	ParentID   *uuid.UUID
	Name       string
	IsFavorite bool
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (f *Folder) IsTrashed() bool {
	return f.DeletedAt != nil
}

type File struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	FolderID       *uuid.UUID
	Name           string
	BlobKey        string
	SizeBytes      int64
	MimeType       string
	IsFavorite     bool
	DeletedAt      *time.Time
	LastAccessedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (f *File) IsTrashed() bool {
	return f.DeletedAt != nil
}

func (f *File) FormattedSize() string {
	return FormatSize(f.SizeBytes)
}

type CreateFolderInput struct {
	OwnerID  uuid.UUID
	ParentID *uuid.UUID
	Name     string
}

type CreateFileInput struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	FolderID  *uuid.UUID
	Name      string
	BlobKey   string
	SizeBytes int64
	MimeType  string
}

// Contents is the active children of a folder, or of the root level when
// the folder is nil.
type Contents struct {
	Folder  *Folder
	Folders []*Folder
	Files   []*File
}

// TrashedItem is a row selected by the retention sweeper.
type TrashedItem struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	ParentID  *uuid.UUID
	Name      string
	BlobKey   string
	SizeBytes int64
	DeletedAt time.Time
}

// FormatSize renders a byte count in base-1024 units with one decimal,
// e.g. 1536000 -> "1.5 MB".
func FormatSize(size int64) string {
	value := float64(size)
	for _, unit := range sizeUnits[:len(sizeUnits)-1] {
		if value < 1024 && value > -1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[len(sizeUnits)-1])
}

// DetectMimeType derives a content type from the file extension.
func DetectMimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return DefaultMimeType
	}

	detected := mime.TypeByExtension(ext)
	if detected == "" {
		return DefaultMimeType
	}

	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return DefaultMimeType
	}
	return mediaType
}

// ResolveMimeType keeps an explicit content type unless it is empty or
// the generic fallback, in which case the extension decides.
func ResolveMimeType(name, supplied string) string {
	if mediaType, _, err := mime.ParseMediaType(supplied); err == nil && mediaType != DefaultMimeType {
		return mediaType
	}
	return DetectMimeType(name)
}
