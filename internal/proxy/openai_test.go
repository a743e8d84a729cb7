package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOpenAI(url string) *OpenAIClient {
	return NewOpenAIClient(OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     url + "/",
		ChatModel:   "gpt-4o-mini",
		VisionModel: "gpt-4o",
		TTSModel:    "tts-1",
		TTSVoice:    "alloy",
		STTModel:    "whisper-1",
	}, nil)
}

type recordedCall struct {
	provider, operation string
	status              int
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) ObserveUpstream(provider, operation string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{provider, operation, status})
}

func TestGenerate_SendsSystemAndUser(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var raw struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		got.Model = raw.Model
		for _, m := range raw.Messages {
			got.Messages = append(got.Messages, ChatMessage{Role: m.Role, Content: m.Content})
		}
		fmt.Fprint(w, `{"id":"c1","choices":[{"message":{"role":"assistant","content":"Namaskaram!"}}]}`)
	}))
	defer srv.Close()

	out, err := testOpenAI(srv.URL).Generate(context.Background(), "be kind", "Hello", "")
	require.NoError(t, err)
	assert.Equal(t, "Namaskaram!", out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, ChatMessage{Role: "system", Content: "be kind"}, got.Messages[0])
	assert.Equal(t, ChatMessage{Role: "user", Content: "Hello"}, got.Messages[1])
}

func TestGenerate_ModelHintAndNoInstructions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "gpt-4.1", raw["model"])
		assert.Len(t, raw["messages"], 1)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	_, err := testOpenAI(srv.URL).Generate(context.Background(), "", "hi", "gpt-4.1")
	require.NoError(t, err)
}

func TestGenerate_UpstreamErrorSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"slow down"}`)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := testOpenAI(srv.URL)
	c.recorder = rec

	_, err := c.Generate(context.Background(), "", "hi", "")
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "openai", ue.Provider)
	assert.Equal(t, http.StatusTooManyRequests, ue.Status)
	assert.Contains(t, ue.Body, "slow down")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []recordedCall{{"openai", "chat", 429}}, rec.calls)
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := testOpenAI(srv.URL).Generate(context.Background(), "", "hi", "")
	assert.ErrorContains(t, err, "no choices")
}

func TestGenerate_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testOpenAI(srv.URL).Generate(ctx, "", "hi", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeImage_SendsImagePart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "gpt-4o", raw.Model)
		require.Len(t, raw.Messages, 1)

		var parts []ContentPart
		require.NoError(t, json.Unmarshal(raw.Messages[0].Content, &parts))
		require.Len(t, parts, 2)
		assert.Equal(t, "image_url", parts[1].Type)
		assert.Equal(t, "https://cdn.example/img.png", parts[1].ImageURL.URL)

		fmt.Fprint(w, `{"choices":[{"message":{"content":"A medicine strip."}}]}`)
	}))
	defer srv.Close()

	out, err := testOpenAI(srv.URL).AnalyzeImage(context.Background(), "", "https://cdn.example/img.png")
	require.NoError(t, err)
	assert.Equal(t, "A medicine strip.", out)
}

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		var req speechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, speechRequest{Model: "tts-1", Input: "hello", Voice: "alloy", ResponseFormat: "mp3"}, req)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	audio, ct, err := testOpenAI(srv.URL).Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), audio)
	assert.Equal(t, "audio/mpeg", ct)
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "clip.webm", hdr.Filename)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "webm-bytes", string(b))

		fmt.Fprint(w, `{"text":"namaste"}`)
	}))
	defer srv.Close()

	text, err := testOpenAI(srv.URL).Transcribe(context.Background(), strings.NewReader("webm-bytes"), "clip.webm")
	require.NoError(t, err)
	assert.Equal(t, "namaste", text)
}

func TestGenerate_EmptyContent(t *testing.T) {
	for name, body := range map[string]string{
		"null":    `{"choices":[{"message":{"role":"assistant","content":null},"finish_reason":"content_filter"}]}`,
		"blank":   `{"choices":[{"message":{"role":"assistant","content":"  "},"finish_reason":"stop"}]}`,
		"missing": `{"choices":[{"message":{"role":"assistant"}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			out, err := testOpenAI(srv.URL).Generate(context.Background(), "", "hi", "")
			assert.ErrorContains(t, err, "empty content")
			assert.Empty(t, out)
		})
	}
}

func TestAnalyzeImage_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`)
	}))
	defer srv.Close()

	_, err := testOpenAI(srv.URL).AnalyzeImage(context.Background(), "", "https://cdn.example/a.png")
	assert.ErrorContains(t, err, "content_filter")
}
