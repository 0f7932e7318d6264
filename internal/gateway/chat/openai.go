package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/voxmate/voxmate-go/internal/gateway"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	defaultModel  = "gpt-4o-mini"
)

// OpenAIProvider completes through an OpenAI-compatible
// /chat/completions endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures OpenAIProvider.
type Option func(*OpenAIProvider)

// WithBaseURL points the provider at an OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(p *OpenAIProvider) {
		if url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithModel(model string) Option {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(p *OpenAIProvider) {
		p.httpClient = client
	}
}

func NewOpenAI(apiKey string, opts ...Option) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    openAIBaseURL,
		model:      defaultModel,
		httpClient: gateway.DefaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]chatMessage, 0, len(prompt.Turns)+2)
	if prompt.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt.System})
	}
	for _, t := range prompt.Turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, chatMessage{Role: string(RoleUser), Content: prompt.UserText})

	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: 0.8,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", gateway.ReadError(p.Name(), resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyReply
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
