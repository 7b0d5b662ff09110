package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"insight-survey-service/internal/domain"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModelID = "eleven_multilingual_v2"
	defaultTimeout = 30 * time.Second

	outputFormat = "mp3_44100_128"
)

// Config holds the provider parameters. APIKey and VoiceID come from
// deployment config; the rest default to the values below when empty.
type Config struct {
	APIKey  string
	VoiceID string
	ModelID string
	BaseURL string
	Timeout time.Duration
}

// Client calls the ElevenLabs text-to-speech endpoint with a fixed voice and
// model configuration. It implements app.Synthesizer.
type Client struct {
	httpClient *http.Client
	apiKey     string
	voiceID    string
	modelID    string
	baseURL    string
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		voiceID:    cfg.VoiceID,
		modelID:    cfg.ModelID,
		baseURL:    cfg.BaseURL,
	}
}

// Configured reports whether an API key is present, for health reporting.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize posts text to the provider and returns the raw audio bytes.
// Any failure, transport or non-2xx, surfaces as a domain.UpstreamError; the
// operation is never retried here.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", c.baseURL, url.PathEscape(c.voiceID), outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Body: string(detail)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Err: fmt.Errorf("read audio: %w", err)}
	}
	return audio, nil
}
