package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/voxmate/voxmate-go/internal/audio"
	"github.com/voxmate/voxmate-go/internal/gateway"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	defaultModel  = "whisper-1"
)

// OpenAIProvider transcribes through an OpenAI-compatible
// /audio/transcriptions endpoint.
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

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithHTTPClient sets the HTTP client for API requests.
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

// Transcribe uploads the audio under the sniffed container name. When the
// provider rejects that container it is retried once with the alternate one.
func (p *OpenAIProvider) Transcribe(ctx context.Context, data []byte, mimeHint string) (Transcript, error) {
	format := audio.Resolve(data, mimeHint)

	t, err := p.transcribe(ctx, data, format)
	if err == nil {
		return t, nil
	}

	alt := format.Alternate()
	if alt == audio.FormatUnknown || !rejectedContainer(err) {
		return Transcript{}, err
	}
	return p.transcribe(ctx, data, alt)
}

func rejectedContainer(err error) bool {
	switch gateway.StatusOf(err) {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

type openAITranscriptionResponse struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (p *OpenAIProvider) transcribe(ctx context.Context, data []byte, format audio.Format) (Transcript, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", format.Filename())
	if err != nil {
		return Transcript{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return Transcript{}, fmt.Errorf("write audio data: %w", err)
	}
	if err := mw.WriteField("model", p.model); err != nil {
		return Transcript{}, fmt.Errorf("write model field: %w", err)
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return Transcript{}, fmt.Errorf("write response_format field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Transcript{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return Transcript{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Transcript{}, gateway.ReadError(p.Name(), resp)
	}

	var out openAITranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Transcript{}, fmt.Errorf("parse response: %w", err)
	}

	return newTranscript(out.Text, out.Confidence), nil
}
