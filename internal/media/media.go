// Package media decodes client-supplied binary payloads and relays them to
// an object store that serves them from public URLs.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyPayload is returned when there is nothing to upload.
var ErrEmptyPayload = errors.New("empty media payload")

// Payload is a decoded binary object and its MIME type.
type Payload struct {
	Data        []byte
	ContentType string
}

// DecodeDataURI accepts "data:<mime>;base64,<data>" or bare base64 and
// returns the decoded payload. Bare base64 has its content type sniffed.
func DecodeDataURI(s string) (Payload, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Payload{}, ErrEmptyPayload
	}

	var contentType string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return Payload{}, errors.New("malformed data URI: missing comma")
		}
		mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
		if !isBase64 {
			return Payload{}, errors.New("malformed data URI: only base64 encoding is supported")
		}
		contentType = mediaType
		s = data
	}

	data, err := decodeBase64(s)
	if err != nil {
		return Payload{}, fmt.Errorf("decoding base64 payload: %w", err)
	}
	if len(data) == 0 {
		return Payload{}, ErrEmptyPayload
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return Payload{Data: data, ContentType: contentType}, nil
}

func decodeBase64(s string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// ObjectStore persists objects and resolves their public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	PublicURL(key string) string
}

// Relay uploads payloads under generated keys.
type Relay struct {
	store ObjectStore
}

func NewRelay(store ObjectStore) *Relay {
	return &Relay{store: store}
}

// Upload stores p as "<folder>/<uuid><ext>" and returns its public URL.
func (r *Relay) Upload(ctx context.Context, p Payload, folder string) (string, error) {
	if len(p.Data) == 0 {
		return "", ErrEmptyPayload
	}
	key := path.Join(folder, uuid.NewString()+extension(p.ContentType))
	if err := r.store.Put(ctx, key, bytes.NewReader(p.Data), p.ContentType); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return r.store.PublicURL(key), nil
}

var preferredExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/webm": ".webm",
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	if ext, ok := preferredExt[mediaType]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
