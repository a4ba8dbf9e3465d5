package aimeta

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"darkroom/internal/config"
)

// HTTPProvider speaks to an OpenAI-compatible chat completions endpoint with
// vision support.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewHTTPProvider builds a provider from its configuration entry.
func NewHTTPProvider(cfg config.AIProvider) *HTTPProvider {
	return &HTTPProvider{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{},
	}
}

// Name returns the configured provider name.
func (p *HTTPProvider) Name() string { return p.name }

const analysisPrompt = `Describe this photo as JSON with keys: tags (array of
lowercase keywords), short_description, long_description, detected_objects
(array), confidence (0 to 1). Respond with JSON only.`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type analysisPayload struct {
	Tags             []string           `json:"tags"`
	ShortDescription string             `json:"short_description"`
	LongDescription  string             `json:"long_description"`
	DetectedObjects  []string           `json:"detected_objects"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	Confidence       float64            `json:"confidence"`
}

// Analyze sends the photo to the chat endpoint and parses the JSON answer.
func (p *HTTPProvider) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	prompt := analysisPrompt
	if hint := peopleHint(req.People); hint != "" {
		prompt += "\n" + hint
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MIMEType, base64.StdEncoding.EncodeToString(req.Data))
	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
		ResponseFormat: &respFormat{Type: "json_object"},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	var payload analysisPayload
	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}

	return &Analysis{
		Tags:             payload.Tags,
		ShortDescription: payload.ShortDescription,
		LongDescription:  payload.LongDescription,
		DetectedObjects:  payload.DetectedObjects,
		ConfidenceScores: payload.ConfidenceScores,
		Confidence:       payload.Confidence,
	}, nil
}

func peopleHint(people []PersonContext) string {
	if len(people) == 0 {
		return ""
	}
	names := make([]string, 0, len(people))
	for _, person := range people {
		if person.Age >= 0 {
			names = append(names, fmt.Sprintf("%s (age %d)", person.Name, person.Age))
		} else {
			names = append(names, person.Name)
		}
	}
	return "Known people in this photo: " + strings.Join(names, ", ") + "."
}
