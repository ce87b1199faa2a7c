// Package transcribe sends finished recordings to the speech-to-text service.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Transcriber converts one recording file to text. The wire protocol behind
// it is an opaque boundary to the session controller.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Options carries the request-level hints accepted by the service.
type Options struct {
	Endpoint string
	Model    string
	Language string
	Timeout  time.Duration
}

// Client speaks the whisper-server HTTP protocol: a multipart file upload
// against /inference answered with a JSON {"text": ...} payload.
type Client struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger
}

// NewClient constructs a transcription client from runtime options.
func NewClient(opts Options, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Transcribe uploads the WAV at path and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read recording: %w", err)
	}
	fields := map[string]string{"response_format": "json"}
	if c.opts.Model != "" {
		fields["model"] = c.opts.Model
	}
	if c.opts.Language != "" {
		fields["language"] = c.opts.Language
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	url := endpointURL(c.opts.Endpoint, "/inference")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription service returned HTTP %d: %s", resp.StatusCode, errorDetail(payload))
	}

	var decoded struct {
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("transcription service error: %s", decoded.Error)
	}

	text := strings.TrimSpace(decoded.Text)
	if c.logger != nil {
		c.logger.Info("transcription complete",
			"latency_ms", time.Since(started).Milliseconds(),
			"transcript_length", len(text),
		)
	}
	return text, nil
}

// Healthy probes the service readiness endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL(c.opts.Endpoint, "/health"), nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transcription service health returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// endpointURL normalizes host[:port] or URL config values against a route.
func endpointURL(endpoint string, route string) string {
	base := strings.TrimSpace(endpoint)
	if base == "" {
		base = "127.0.0.1:8080"
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/") + route
}

// errorDetail extracts a short failure message from an error payload.
func errorDetail(payload []byte) string {
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	trimmed := strings.TrimSpace(string(payload))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	if trimmed == "" {
		return "no detail"
	}
	return trimmed
}
