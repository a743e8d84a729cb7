package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zadescoxp/Sahayak/internal/apperr"
	"github.com/zadescoxp/Sahayak/internal/composer"
	"github.com/zadescoxp/Sahayak/internal/media"
	"github.com/zadescoxp/Sahayak/internal/storage"
)

const maxImageBodySize = 15 << 20 // 15MB, base64 inflates ~4/3

type analyzeRequest struct {
	Image string `json:"image" validate:"required"`
}

type analyzeData struct {
	Analysis string `json:"analysis"`
	ImageURL string `json:"imageUrl"`
}

type analyzeResponse struct {
	Success bool        `json:"success"`
	Data    analyzeData `json:"data"`
}

type chatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

func handleHealthAnalyze(deps Deps) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		claim, err := claimFrom(r)
		if err != nil {
			return err
		}

		var req analyzeRequest
		if err := decodeJSON(w, r, maxImageBodySize, &req); err != nil {
			return err
		}
		payload, err := media.DecodeDataURI(req.Image)
		if err != nil {
			return apperr.Validation("image must be a base64 string or data URI: %v", err)
		}

		p, err := loadProfile(r.Context(), deps, claim.Subject)
		if err != nil {
			return err
		}
		instructions, err := composer.ComposeImageAnalysis(p)
		if err != nil {
			return err
		}

		if deps.Media == nil {
			return apperr.Internal("media storage is not configured", nil)
		}
		imageURL, err := deps.Media.Upload(r.Context(), payload, "health")
		if err != nil {
			return apperr.Upstream("media upload failed", err)
		}

		analysis, err := deps.Analyzer.AnalyzeImage(r.Context(), instructions, imageURL)
		if err == nil && strings.TrimSpace(analysis) == "" {
			err = errEmptyReply
		}
		if err != nil {
			return apperr.Upstream("model provider request failed", err)
		}

		if err := deps.Health.SaveHealthRecord(r.Context(), storage.HealthRecord{
			ID:        uuid.New().String(),
			UserID:    claim.Subject,
			ImageURL:  imageURL,
			Analysis:  analysis,
			Medicines: []string{},
			Tips:      []string{},
			CreatedAt: deps.Now().UTC(),
		}); err != nil {
			return apperr.Internal("failed to save health record", err)
		}

		writeJSON(w, http.StatusOK, analyzeResponse{
			Success: true,
			Data:    analyzeData{Analysis: analysis, ImageURL: imageURL},
		})
		return nil
	}
}

func handleHealthChat(deps Deps) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		claim, err := claimFrom(r)
		if err != nil {
			return err
		}

		var req modeRequest
		if err := decodeJSON(w, r, maxRequestBodySize, &req); err != nil {
			return err
		}

		record, err := deps.Health.LatestHealthRecord(r.Context(), claim.Subject)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.Validation("Please analyze your health condition first")
		}
		if err != nil {
			return apperr.Internal("failed to load health record", err)
		}

		p, err := loadProfile(r.Context(), deps, claim.Subject)
		if err != nil {
			return err
		}
		instructions, err := composer.ComposeHealthChat(p, record.Analysis)
		if err != nil {
			return err
		}

		out, err := generate(r.Context(), deps.Generators.For(string(composer.ModeHealth)), instructions, req.Input)
		if err != nil {
			return err
		}

		writeJSON(w, http.StatusOK, chatResponse{Success: true, Response: out})
		return nil
	}
}
