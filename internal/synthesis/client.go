// Package synthesis turns affirmation text into persisted speech audio
// artifacts by calling a standalone speech-synthesis HTTP service and
// writing each result to durable storage.
package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
)

// Default values.
const (
	defaultTemperature = 0.75
	defaultLanguage    = "en"
)

// Error messages.
const (
	errTextCannotBeEmpty       = "text cannot be empty"
	errUnexpectedContentType   = "unexpected content type: expected audio/mpeg, got %s"
	errReceivedEmptyAudio      = "received empty audio data"
	errFmtServiceErrorWithCode = "synthesis service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "synthesis service returned non-OK status: %s, body: %s"
)

// Client is an HTTP client for the standalone speech-synthesis service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Request defines the JSON payload for one synthesis call.
type Request struct {
	// Text contains the input text to convert to speech. Must be
	// non-empty and within the provider's per-call character limit.
	Text string `json:"text"`

	// Voice selects the provider-side voice. If empty, the provider's
	// default voice is used.
	Voice string `json:"voice,omitempty"`

	// Language specifies the target language code (e.g., "en", "es").
	// Defaults to "en" if not specified.
	Language string `json:"language"`

	// Temperature controls randomness in speech generation.
	Temperature float64 `json:"temperature"`
}

// serviceError represents a structured error response from the provider.
type serviceError struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewClient creates and configures an HTTP client for the synthesis
// service. The baseURL should include the protocol and port. The timeout
// applies to all HTTP requests made by this client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateSpeech sends one synthesis request and returns the raw encoded
// audio data. The returned audio is MP3 as specified by the service
// contract; callers are responsible for persisting it.
func (c *Client) GenerateSpeech(ctx context.Context, req Request) ([]byte, error) {
	if req.Text == "" {
		return nil, errors.New(errTextCannotBeEmpty)
	}

	if req.Temperature == 0 {
		req.Temperature = defaultTemperature
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + apiGenerateSpeech

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeMPEG)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to synthesis service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeMPEG {
		return nil, fmt.Errorf(errUnexpectedContentType, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, errors.New(errReceivedEmptyAudio)
	}

	return audioData, nil
}

// HealthCheck verifies that the synthesis service is running. Health checks
// are performed at startup to fail fast with clear diagnostics when the
// provider is unavailable.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse attempts to decode a structured JSON error from the
// service, falling back to the raw body so diagnostics are preserved.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp serviceError

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		errFmtServiceNonOKStatus,
		resp.Status,
		string(body),
	)
}
