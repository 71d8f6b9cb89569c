package evidence

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileCategory is the coarse classification of an upload, used for
// display and for deciding whether a preview is generated. It is
// unrelated to the incident's own category.
type FileCategory string

const (
	CategoryImage    FileCategory = "image"
	CategoryDocument FileCategory = "document"
	CategoryText     FileCategory = "text"
	CategoryArchive  FileCategory = "archive"
	CategoryVideo    FileCategory = "video"
	CategoryAudio    FileCategory = "audio"
	CategoryCapture  FileCategory = "capture"
	CategoryUnknown  FileCategory = "unknown"
)

var categoryByExtension = map[string]FileCategory{
	"png": CategoryImage, "jpg": CategoryImage, "jpeg": CategoryImage,
	"gif": CategoryImage, "bmp": CategoryImage, "webp": CategoryImage,
	"svg": CategoryImage,

	"pdf": CategoryDocument, "doc": CategoryDocument, "docx": CategoryDocument,
	"xls": CategoryDocument, "xlsx": CategoryDocument, "ppt": CategoryDocument,
	"pptx": CategoryDocument, "odt": CategoryDocument,

	"txt": CategoryText, "log": CategoryText, "csv": CategoryText,
	"json": CategoryText, "xml": CategoryText, "html": CategoryText,

	"zip": CategoryArchive, "rar": CategoryArchive, "7z": CategoryArchive,
	"tar": CategoryArchive, "gz": CategoryArchive,

	"mp4": CategoryVideo, "avi": CategoryVideo, "mkv": CategoryVideo,
	"webm": CategoryVideo,

	"mp3": CategoryAudio, "wav": CategoryAudio, "ogg": CategoryAudio,

	"pcap": CategoryCapture, "pcapng": CategoryCapture,
}

// Default allow-list, matching the original deployment plus the common
// office/archive formats analysts actually attach.
var defaultAllowedExtensions = []string{
	"pdf", "png", "jpg", "jpeg", "gif", "bmp", "webp",
	"txt", "log", "csv", "json", "xml",
	"doc", "docx", "xls", "xlsx",
	"zip", "gz",
	"pcap", "pcapng",
}

// ValidationError reports why a single file was refused. Batch callers
// collect these per file and keep going.
type ValidationError struct {
	Filename string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

type Validator struct {
	allowed  map[string]struct{}
	maxBytes int64
}

func NewValidator(allowedExtensions []string, maxBytes int64) *Validator {
	if len(allowedExtensions) == 0 {
		allowedExtensions = defaultAllowedExtensions
	}
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	return &Validator{allowed: allowed, maxBytes: maxBytes}
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate is a pure decision: it never touches the bytes. A non-nil
// error is always a *ValidationError.
func (v *Validator) Validate(filename string, size int64) (FileCategory, error) {
	ext := extensionOf(filename)
	if ext == "" {
		return CategoryUnknown, &ValidationError{Filename: filename, Reason: "missing file extension"}
	}
	if _, ok := v.allowed[ext]; !ok {
		return CategoryUnknown, &ValidationError{Filename: filename, Reason: fmt.Sprintf("extension .%s not allowed", ext)}
	}
	if size > v.maxBytes {
		return CategoryUnknown, &ValidationError{Filename: filename, Reason: fmt.Sprintf("file exceeds %d bytes", v.maxBytes)}
	}
	return Classify(filename), nil
}

// Classify buckets a filename by extension regardless of whether the
// extension is allowed for upload.
func Classify(filename string) FileCategory {
	ext := extensionOf(filename)
	if cat, ok := categoryByExtension[ext]; ok {
		return cat
	}
	return CategoryUnknown
}

func extensionOf(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
