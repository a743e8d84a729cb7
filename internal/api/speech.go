package api

import (
	"errors"
	"net/http"

	"github.com/zadescoxp/Sahayak/internal/apperr"
	"github.com/zadescoxp/Sahayak/internal/media"
)

const maxAudioUploadSize = 25 << 20 // provider limit for transcription

type speechRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

type speechResponse struct {
	Success  bool   `json:"success"`
	AudioURL string `json:"audioUrl"`
}

type transcriptResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

func handleTextToSpeech(deps Deps) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req speechRequest
		if err := decodeJSON(w, r, maxRequestBodySize, &req); err != nil {
			return err
		}
		if deps.Media == nil {
			return apperr.Internal("media storage is not configured", nil)
		}

		audio, contentType, err := deps.Synthesizer.Synthesize(r.Context(), req.Text)
		if err != nil {
			return apperr.Upstream("speech synthesis failed", err)
		}
		url, err := deps.Media.Upload(r.Context(), media.Payload{Data: audio, ContentType: contentType}, "tts")
		if err != nil {
			return apperr.Upstream("media upload failed", err)
		}

		writeJSON(w, http.StatusOK, speechResponse{Success: true, AudioURL: url})
		return nil
	}
}

func handleSpeechToText(deps Deps) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadSize)
		if err := r.ParseMultipartForm(maxAudioUploadSize); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return apperr.Validation("audio exceeds %d bytes", tooLarge.Limit)
			}
			return apperr.Validation("invalid multipart body: %v", err)
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("audio")
		if err != nil {
			return apperr.Validation("audio file is required")
		}
		defer file.Close()

		text, err := deps.Transcriber.Transcribe(r.Context(), file, header.Filename)
		if err != nil {
			return apperr.Upstream("speech transcription failed", err)
		}

		writeJSON(w, http.StatusOK, transcriptResponse{Success: true, Text: text})
		return nil
	}
}
