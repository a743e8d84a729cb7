package media

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

func (m *memStore) PublicURL(key string) string {
	return "https://cdn.example/" + key
}

func TestDecodeDataURI(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(pngHeader)

	tests := []struct {
		name   string
		in     string
		wantCT string
	}{
		{"data uri", "data:image/jpeg;base64," + b64, "image/jpeg"},
		{"bare base64 sniffed", b64, "image/png"},
		{"unpadded", strings.TrimRight(b64, "="), "image/png"},
		{"surrounding whitespace", "  " + b64 + "\n", "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeDataURI(tt.in)
			require.NoError(t, err)
			assert.Equal(t, pngHeader, p.Data)
			assert.Equal(t, tt.wantCT, p.ContentType)
		})
	}
}

func TestDecodeDataURI_Errors(t *testing.T) {
	_, err := DecodeDataURI("")
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = DecodeDataURI("data:image/png;base64")
	assert.ErrorContains(t, err, "missing comma")

	_, err = DecodeDataURI("data:text/plain,hello")
	assert.ErrorContains(t, err, "base64")

	_, err = DecodeDataURI("!!!not base64!!!")
	assert.Error(t, err)
}

func TestRelayUpload(t *testing.T) {
	store := newMemStore()
	r := NewRelay(store)

	url, err := r.Upload(context.Background(), Payload{Data: pngHeader, ContentType: "image/png"}, "health")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://cdn.example/health/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	key := strings.TrimPrefix(url, "https://cdn.example/")
	assert.Equal(t, pngHeader, store.objects[key])
	assert.Equal(t, "image/png", store.types[key])
}

func TestRelayUpload_UniqueKeys(t *testing.T) {
	r := NewRelay(newMemStore())
	p := Payload{Data: []byte("x"), ContentType: "audio/mpeg"}

	a, err := r.Upload(context.Background(), p, "tts")
	require.NoError(t, err)
	b, err := r.Upload(context.Background(), p, "tts")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".mp3"))
}

func TestRelayUpload_Errors(t *testing.T) {
	store := newMemStore()
	r := NewRelay(store)

	_, err := r.Upload(context.Background(), Payload{}, "health")
	assert.ErrorIs(t, err, ErrEmptyPayload)

	cause := errors.New("bucket missing")
	store.err = cause
	_, err = r.Upload(context.Background(), Payload{Data: []byte("x"), ContentType: "image/png"}, "health")
	assert.ErrorIs(t, err, cause)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", extension("image/jpeg"))
	assert.Equal(t, ".png", extension("image/png; charset=binary"))
	assert.Equal(t, ".bin", extension("not a type"))
	assert.Equal(t, ".bin", extension("application/x-sahayak-unknown"))
}
