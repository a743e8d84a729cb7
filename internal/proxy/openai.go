package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	providerOpenAI       = "openai"
)

// OpenAIConfig holds the model choices for each OpenAI operation.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	VisionModel string
	TTSModel    string
	TTSVoice    string
	STTModel    string
}

// OpenAIClient talks to the OpenAI REST API. Each call is a single attempt.
type OpenAIClient struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	recorder   Recorder
}

// NewOpenAIClient creates a client. An empty BaseURL selects the public API.
func NewOpenAIClient(cfg OpenAIConfig, rec Recorder) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIClient{cfg: cfg, httpClient: newHTTPClient(), recorder: rec}
}

func (c *OpenAIClient) Generate(ctx context.Context, instructions, input, modelHint string) (string, error) {
	model := modelHint
	if model == "" {
		model = c.cfg.ChatModel
	}
	var msgs []ChatMessage
	if instructions != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: instructions})
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: input})
	return c.chat(ctx, "chat", ChatRequest{Model: model, Messages: msgs})
}

func (c *OpenAIClient) AnalyzeImage(ctx context.Context, instructions, imageURL string) (string, error) {
	var msgs []ChatMessage
	if instructions != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: instructions})
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: []ContentPart{
		{Type: "text", Text: "Analyze this image."},
		{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
	}})
	return c.chat(ctx, "vision", ChatRequest{Model: c.cfg.VisionModel, Messages: msgs})
}

func (c *OpenAIClient) chat(ctx context.Context, operation string, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuth(httpReq)

	resp, err := do(c.httpClient, c.recorder, providerOpenAI, operation, httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	content := out.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("chat response has empty content (finish_reason %q)", out.Choices[0].FinishReason)
	}
	return content, nil
}

func (c *OpenAIClient) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	body, err := json.Marshal(speechRequest{
		Model:          c.cfg.TTSModel,
		Input:          text,
		Voice:          c.cfg.TTSVoice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshaling speech request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuth(httpReq)

	resp, err := do(c.httpClient, c.recorder, providerOpenAI, "speech", httpReq)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading speech audio: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = "audio/mpeg"
	}
	return audio, contentType, nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model", c.cfg.STTModel); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", fmt.Errorf("copying audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuth(httpReq)

	resp, err := do(c.httpClient, c.recorder, providerOpenAI, "transcription", httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}
	return out.Text, nil
}

func (c *OpenAIClient) setAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
}
