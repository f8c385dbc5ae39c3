// Package genai is the client for the external text-generation service that
// writes progress reports and stories.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dom/learnplay/internal/domain"
	"go.uber.org/zap"
)

// Generator produces text from an ordered list of prompt parts.
type Generator interface {
	Generate(ctx context.Context, parts ...string) (string, error)
}

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"

	// error bodies are truncated before being surfaced
	maxErrorBody = 4 << 10
)

// GeminiClient calls the generateContent endpoint.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewGeminiClient(baseURL, model, apiKey string, httpClient *http.Client, logger *zap.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  httpClient,
		logger:  logger,
	}
}

type textPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string     `json:"role,omitempty"`
	Parts []textPart `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends parts as a single user turn and returns the first candidate's
// text, or "" when the reply carries none. Every failure is an
// *domain.ExternalServiceError.
func (c *GeminiClient) Generate(ctx context.Context, parts ...string) (string, error) {
	body := generateRequest{Contents: []content{{Role: "user"}}}
	for _, p := range parts {
		body.Contents[0].Parts = append(body.Contents[0].Parts, textPart{Text: p})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &domain.ExternalServiceError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &domain.ExternalServiceError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("[genai.Generate] request failed", zap.String("model", c.model), zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &domain.ExternalServiceError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("[genai.Generate] service returned error",
			zap.String("model", c.model),
			zap.Int("status", resp.StatusCode))
		return "", &domain.ExternalServiceError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &domain.ExternalServiceError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
