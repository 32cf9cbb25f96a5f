package media

import (
	"context"
	"strings"

	"github.com/yourorg/amity/pkg/apperr"
)

// File is an attachment body received from a client, held in memory for the
// duration of the owning transaction.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader converts a binary buffer into a durable URL. The store calls it
// inside an open transaction; a returned error aborts the whole operation.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// FolderFor maps a media type onto its storage folder. Unsupported types are
// rejected before any byte leaves the process.
func FolderFor(contentType string) (string, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "messageFiles", nil
	case strings.HasPrefix(contentType, "video/"):
		return "video-message", nil
	case strings.HasPrefix(contentType, "audio/"):
		return "audio-message", nil
	default:
		return "", apperr.InvalidArg("unsupported file type")
	}
}
