package proxy

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Generator produces text from instructions plus user input.
// modelHint overrides the client's default model when non-empty.
type Generator interface {
	Generate(ctx context.Context, instructions, input, modelHint string) (string, error)
}

// ImageAnalyzer describes the image at imageURL. instructions may be empty.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, instructions, imageURL string) (string, error)
}

// Synthesizer converts text to speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio []byte, contentType string, err error)
}

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Recorder observes upstream calls. status is the HTTP status, or 0 when
// the request never got a response.
type Recorder interface {
	ObserveUpstream(provider, operation string, status int, elapsed time.Duration)
}

// UpstreamError is returned when a provider answers with a non-2xx status.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Status, e.Body)
}

// ChatMessage is one OpenAI chat message. Content is either a string or a
// slice of ContentPart.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multi-part user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// ChatRequest is the OpenAI chat completion request body.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse is the subset of the chat completion response we read.
type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}
