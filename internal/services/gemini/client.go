// Package gemini calls the Google Generative Language API.
package gemini

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

	"scrobble/internal/services"
)

// Generation settings for identification requests. Low temperature
// keeps the model's JSON output stable across runs.
const (
	temperature      = 0.1
	topP             = 0.8
	topK             = 40
	maxOutputTokens  = 256
	responseMimeType = "application/json"
)

// Client talks to a generateContent endpoint for a single model.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option mutates client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for baseURL and model. baseURL points at the
// models collection, for example
// https://generativelanguage.googleapis.com/v1beta/models.
func New(baseURL, model string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	SystemInstruction *content         `json:"system_instruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateContent sends a single-turn prompt and returns the text of
// the first candidate. No retries are attempted.
func (c *Client) GenerateContent(ctx context.Context, apiKey, systemPrompt, userPrompt string) (string, error) {
	if apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "gemini", "generate", "API key not configured", nil)
	}

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: userPrompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			TopP:             topP,
			TopK:             topK,
			MaxOutputTokens:  maxOutputTokens,
			ResponseMimeType: responseMimeType,
		},
	}
	if systemPrompt != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrParse, "gemini", "generate", "encode request", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrNetwork, "gemini", "generate", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrNetwork, "gemini", "generate", "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrNetwork, "gemini", "generate", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrNetwork, "gemini", "generate",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, summarize(raw)), nil)
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", services.Wrap(services.ErrParse, "gemini", "generate", "decode response", err)
	}
	if decoded.Error != nil {
		return "", services.Wrap(services.ErrNetwork, "gemini", "generate",
			fmt.Sprintf("API error %d: %s", decoded.Error.Code, decoded.Error.Message), nil)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", services.Wrap(services.ErrParse, "gemini", "generate", "response contained no candidates", nil)
	}
	text := decoded.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrParse, "gemini", "generate", "candidate text was empty", nil)
	}
	return text, nil
}

// ExtractJSON pulls a JSON object out of model output. The text is
// used as-is when it already parses; otherwise the first balanced
// {...} span is tried, which strips markdown fences and prose the
// model sometimes wraps around its answer.
func ExtractJSON(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}
	start := strings.Index(trimmed, "{")
	if start < 0 {
		return nil, services.Wrap(services.ErrParse, "gemini", "extract", "no JSON object in model output", nil)
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		ch := trimmed[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				span := trimmed[start : i+1]
				if !json.Valid([]byte(span)) {
					return nil, services.Wrap(services.ErrParse, "gemini", "extract", "embedded object is not valid JSON", nil)
				}
				return []byte(span), nil
			}
		}
	}
	return nil, services.Wrap(services.ErrParse, "gemini", "extract", "unterminated JSON object in model output", nil)
}

func summarize(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
