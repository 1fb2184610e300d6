// Package transcribe converts voice answers to text via an external
// speech-to-text service.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no transcription endpoint is set.
var ErrNotConfigured = errors.New("transcription service not configured")

// Result is the text form of one audio clip. Confidence and duration are
// advisory metadata from the recognizer.
type Result struct {
	Text            string  `json:"text"`
	Confidence      float64 `json:"confidence"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioB64, mimeType string) (Result, error)
}

// HTTPTranscriber calls a speech-to-text HTTP endpoint.
type HTTPTranscriber struct {
	url        string
	httpClient *http.Client
}

// NewHTTPTranscriber constructs a transcriber for the given endpoint.
func NewHTTPTranscriber(url string) (*HTTPTranscriber, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrNotConfigured
	}
	return &HTTPTranscriber{
		url:        url,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type transcribeRequest struct {
	AudioB64 string `json:"audioB64"`
	MimeType string `json:"mimeType"`
}

// Transcribe posts the audio and returns the recognized text.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audioB64, mimeType string) (Result, error) {
	payload, err := json.Marshal(transcribeRequest{AudioB64: audioB64, MimeType: mimeType})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("transcription service status %d", resp.StatusCode)
	}
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("transcription response parse: %w", err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return Result{}, fmt.Errorf("transcription returned empty text")
	}
	return result, nil
}
