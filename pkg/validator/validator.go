package validator

import (
	"fmt"
	"mime"
	"path"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	maxFileNameLen       = 255
	maxContentTypeLen    = 100
	minSharePasswordLen  = 4
	maxSharePasswordLen  = 72
	maxSearchQueryLen    = 255
	asciiControlStart    = 32
	asciiDelete          = 127
	bytesPerMegabyte     = 1024 * 1024
	errNameEmptyFmt      = "%s name cannot be empty"
	errNameMaxLengthFmt  = "%s name must not exceed %d characters"
	errNamePathSepFmt    = "%s name cannot contain path separators"
	errNameControlFmt    = "%s name cannot contain control characters"
	errNameDotsFmt       = "%s name cannot be . or .."
	errFileSizeNegative  = "file size cannot be negative"
	errFileSizeMaxFmt    = "file size must not exceed %.1f MB"
	errContentTypeLenFmt = "content type must not exceed %d characters"
	errContentTypeBad    = "invalid content type"
	errPasswordLenFmt    = "share password must be between %d and %d characters"
	errSearchQueryLenFmt = "search query must not exceed %d characters"
	errExtForbiddenFmt   = "files with extension \".%s\" are not allowed"
	errTypeNotAllowedFmt = "file type %q is not allowed. Allowed types: %s"
	unknownType          = "unknown"

	kindFolder = "folder"
	kindFile   = "file"
)

func FolderName(name string) error {
	return entryName(kindFolder, name)
}

func FileName(name string) error {
	return entryName(kindFile, name)
}

func entryName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf(errNameEmptyFmt, kind)
	}

	if utf8.RuneCountInString(name) > maxFileNameLen {
		return fmt.Errorf(errNameMaxLengthFmt, kind, maxFileNameLen)
	}

	if name == "." || name == ".." {
		return fmt.Errorf(errNameDotsFmt, kind)
	}

	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf(errNamePathSepFmt, kind)
	}

	for _, char := range name {
		if char < asciiControlStart || char == asciiDelete {
			return fmt.Errorf(errNameControlFmt, kind)
		}
	}

	return nil
}

// FileSize checks an upload against the configured maximum. A non-positive
// max disables the upper bound.
func FileSize(size, max int64) error {
	if size < 0 {
		return fmt.Errorf(errFileSizeNegative)
	}

	if max > 0 && size > max {
		return fmt.Errorf(errFileSizeMaxFmt, float64(max)/bytesPerMegabyte)
	}

	return nil
}

func ContentType(contentType string) error {
	if contentType == "" {
		return nil
	}

	if len(contentType) > maxContentTypeLen {
		return fmt.Errorf(errContentTypeLenFmt, maxContentTypeLen)
	}

	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return fmt.Errorf(errContentTypeBad)
	}

	return nil
}

func SharePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minSharePasswordLen || len(password) > maxSharePasswordLen {
		return fmt.Errorf(errPasswordLenFmt, minSharePasswordLen, maxSharePasswordLen)
	}

	return nil
}

func SearchQuery(q string) error {
	if len(q) > maxSearchQueryLen {
		return fmt.Errorf(errSearchQueryLenFmt, maxSearchQueryLen)
	}

	return nil
}

// UploadPolicy restricts what may be uploaded. Empty lists allow everything.
type UploadPolicy struct {
	ForbiddenExtensions []string
	AllowedTypes        []string
}

func (p UploadPolicy) Check(name, contentType string) error {
	if err := FileExtension(name, p.ForbiddenExtensions); err != nil {
		return err
	}
	return AllowedType(name, contentType, p.AllowedTypes)
}

// FileExtension rejects a name whose extension is in forbidden. Entries
// match case-insensitively, with or without the leading dot.
func FileExtension(name string, forbidden []string) error {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return nil
	}

	for _, f := range forbidden {
		if ext == strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), ".")) {
			return fmt.Errorf(errExtForbiddenFmt, ext)
		}
	}

	return nil
}

// AllowedType accepts an upload when either the declared content type or
// the type guessed from the name is in allowed. An empty list accepts
// everything.
func AllowedType(name, contentType string, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}

	set := make([]string, 0, len(allowed))
	for _, a := range allowed {
		set = append(set, strings.ToLower(strings.TrimSpace(a)))
	}

	declared := mediaType(contentType)
	guessed := mediaType(mime.TypeByExtension(path.Ext(name)))
	if (declared != "" && slices.Contains(set, declared)) || (guessed != "" && slices.Contains(set, guessed)) {
		return nil
	}

	shown := declared
	if shown == "" {
		shown = guessed
	}
	if shown == "" {
		shown = unknownType
	}
	slices.Sort(set)
	return fmt.Errorf(errTypeNotAllowedFmt, shown, strings.Join(set, ", "))
}

// mediaType drops parameters such as charset and lowercases the result.
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}
