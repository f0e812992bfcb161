package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/config"
)

// Upstream task statuses reported by the generation API
const (
	TaskStatusPending            = "PENDING"
	TaskStatusGenerating         = "GENERATING"
	TaskStatusTextSuccess        = "TEXT_SUCCESS"
	TaskStatusFirstSuccess       = "FIRST_SUCCESS"
	TaskStatusSuccess            = "SUCCESS"
	TaskStatusCreateTaskFailed   = "CREATE_TASK_FAILED"
	TaskStatusGenerateFailed     = "GENERATE_AUDIO_FAILED"
	TaskStatusCallbackException  = "CALLBACK_EXCEPTION"
	TaskStatusSensitiveWordError = "SENSITIVE_WORD_ERROR"
)

// MusicGenerator defines the interface for music generation operations
type MusicGenerator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateData, error)
	RecordInfo(ctx context.Context, taskID string) (*TaskRecord, error)
}

// SunoClient implements MusicGenerator against a sunoapi.org-style API
type SunoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// GenerateRequest is the upstream music generation payload
type GenerateRequest struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style,omitempty"`
	Title        string `json:"title,omitempty"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
	CallBackURL  string `json:"callBackUrl"`
}

// GenerateData is the accepted-job payload of a generate response
type GenerateData struct {
	TaskID string `json:"taskId"`
}

// TaskRecord is the upstream record-info payload for one generation task
type TaskRecord struct {
	TaskID       string      `json:"taskId"`
	Status       string      `json:"status"`
	Response     TaskTracks  `json:"response"`
	ErrorCode    json.Number `json:"errorCode,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

// TaskTracks wraps the per-track results of a task
type TaskTracks struct {
	SunoData []Track `json:"sunoData"`
}

// Track is one generated track inside a task record
type Track struct {
	ID             string  `json:"id"`
	Title          string  `json:"title,omitempty"`
	AudioURL       string  `json:"audioUrl,omitempty"`
	SourceAudioURL string  `json:"sourceAudioUrl,omitempty"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
}

// envelope is the common {code,msg,data} wrapper of every API response.
// Any code other than 200 is a failure even on HTTP 200.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// NewSunoClient creates a new generation API client
func NewSunoClient(cfg *config.SunoConfig) *SunoClient {
	return &SunoClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// Generate submits a music generation request and returns the task ID
func (c *SunoClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateData, error) {
	var data GenerateData
	if err := c.post(ctx, "/api/v1/generate", req, &data); err != nil {
		return nil, err
	}
	if data.TaskID == "" {
		return nil, fmt.Errorf("suno API returned no task id")
	}
	return &data, nil
}

// RecordInfo retrieves the current record for a generation task
func (c *SunoClient) RecordInfo(ctx context.Context, taskID string) (*TaskRecord, error) {
	endpoint := "/api/v1/generate/record-info?taskId=" + url.QueryEscape(taskID)
	var data TaskRecord
	if err := c.get(ctx, endpoint, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// post sends a POST request with JSON body
func (c *SunoClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses the JSON response
func (c *SunoClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and unwraps the response envelope
func (c *SunoClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Suno API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Suno API] ✗ %s %s request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Suno API] ✗ %s %s failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Suno API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("suno API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		log.Printf("[Suno API] ✗ unmarshal error for %s %s: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if env.Code != 200 {
		msg := env.Msg
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Errorf("suno API error (code %d): %s", env.Code, msg)
	}
	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *SunoClient) IsConfigured() bool {
	return c.apiKey != ""
}
