package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/inquire/pkg/errors"
)

// DefaultGeminiBaseURL is the public Generative Language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultGeminiModel trades some quality for higher quotas.
const DefaultGeminiModel = "gemini-1.5-flash"

// HTTPClient is the subset of *http.Client the Gemini client needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// GeminiConfig configures a Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	cfg    GeminiConfig
	client HTTPClient
	logger zerolog.Logger
}

// NewGeminiClient creates a client. A nil httpClient gets a default one using cfg.Timeout.
func NewGeminiClient(cfg GeminiConfig, httpClient HTTPClient, logger zerolog.Logger) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &GeminiClient{
		cfg:    cfg,
		client: httpClient,
		logger: logger.With().Str("component", "gemini").Str("model", cfg.Model).Logger(),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Complete sends one generateContent request and returns the concatenated text.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: geminiGenerationConfig{MaxOutputTokens: req.MaxTokens},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeGenerationFailed, "failed to marshal completion request")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeGenerationFailed, "failed to create completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeGenerationFailed, "completion request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("Completion request rejected")
		return "", errors.New(errors.CodeGenerationFailed,
			fmt.Sprintf("completion response not OK, status code: %d, body: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, errors.CodeGenerationFailed, "failed to decode completion response")
	}
	if out.Error != nil {
		return "", errors.New(errors.CodeGenerationFailed, out.Error.Message)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New(errors.CodeGenerationFailed, "completion response has no candidates")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New(errors.CodeGenerationFailed, "completion response has no text")
	}

	c.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("chars", len(text)).
		Str("finish_reason", out.Candidates[0].FinishReason).
		Msg("Completion received")
	return text, nil
}
