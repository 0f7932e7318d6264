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
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"
	cartesiaModel   = "ink-whisper"
)

// CartesiaProvider is the secondary transcriber.
type CartesiaProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a new Cartesia STT provider.
func NewCartesia(apiKey string) *CartesiaProvider {
	return &CartesiaProvider{
		apiKey:     apiKey,
		baseURL:    cartesiaBaseURL,
		httpClient: gateway.DefaultHTTPClient(),
	}
}

// NewCartesiaWithClient creates a Cartesia provider against a custom base
// URL and HTTP client.
func NewCartesiaWithClient(apiKey, baseURL string, client *http.Client) *CartesiaProvider {
	p := NewCartesia(apiKey)
	if baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	if client != nil {
		p.httpClient = client
	}
	return p
}

func (c *CartesiaProvider) Name() string {
	return "cartesia"
}

type cartesiaTranscriptionResponse struct {
	Text string `json:"text"`
}

func (c *CartesiaProvider) Transcribe(ctx context.Context, data []byte, mimeHint string) (Transcript, error) {
	format := audio.Resolve(data, mimeHint)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", format.Filename())
	if err != nil {
		return Transcript{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return Transcript{}, fmt.Errorf("write audio data: %w", err)
	}
	if err := mw.WriteField("model", cartesiaModel); err != nil {
		return Transcript{}, fmt.Errorf("write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Transcript{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stt", &buf)
	if err != nil {
		return Transcript{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Transcript{}, gateway.ReadError(c.Name(), resp)
	}

	var out cartesiaTranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Transcript{}, fmt.Errorf("parse response: %w", err)
	}

	return newTranscript(out.Text, nil), nil
}
