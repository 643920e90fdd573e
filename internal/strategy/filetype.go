package strategy

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

var documentMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// FileTypeFromMIME classifies a content type: image/*, video/* and audio/* by prefix,
// a fixed set of document types, everything else is other.
func FileTypeFromMIME(contentType string) domain.FileType {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mediaType
	}

	switch {
	case strings.HasPrefix(ct, "image/"):
		return domain.FileTypeImage
	case strings.HasPrefix(ct, "video/"):
		return domain.FileTypeVideo
	case strings.HasPrefix(ct, "audio/"):
		return domain.FileTypeAudio
	case documentMimeTypes[ct]:
		return domain.FileTypeDocument
	}
	return domain.FileTypeOther
}

var fallbackMimeTypes = map[domain.FileType]string{
	domain.FileTypeImage:    "image/jpeg",
	domain.FileTypeVideo:    "video/mp4",
	domain.FileTypeAudio:    "audio/mpeg",
	domain.FileTypeDocument: "application/pdf",
	domain.FileTypeOther:    "application/octet-stream",
}

// ResolveMimeType picks the declared type, else what the content looks like, else a default for the file type
func ResolveMimeType(declared string, content []byte, fileType domain.FileType) string {
	if declared != "" {
		return declared
	}
	if len(content) > 0 {
		if detected := mimetype.Detect(content); !detected.Is("application/octet-stream") {
			return detected.String()
		}
	}
	if fallback, ok := fallbackMimeTypes[fileType]; ok {
		return fallback
	}
	return "application/octet-stream"
}

// WithExtension appends the usual extension of contentType to a filename that has none
func WithExtension(filename, contentType string) string {
	if filepath.Ext(filename) != "" || contentType == "" {
		return filename
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return filename
	}
	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return filename + m.Extension()
	}
	return filename
}
