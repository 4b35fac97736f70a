package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kalambet/askbot/internal/api"
	"github.com/kalambet/askbot/internal/config"
)

type apiClient struct {
	baseURL    string
	token      string
	sessionID  string
	httpClient *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.Server.AdminToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.sessionID != "" {
		req.Header.Set(api.SessionHeader, c.sessionID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is askbot running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *apiClient) put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *apiClient) delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// answer mirrors the /api/ask reply.
type answer struct {
	Kind       string  `json:"kind"`
	Lang       string  `json:"lang"`
	Text       string  `json:"response"`
	Type       string  `json:"type"`
	Category   string  `json:"category"`
	ResponseID int64   `json:"response_id"`
	FileURL    string  `json:"file_url"`
	Intent     string  `json:"intent"`
	Score      float64 `json:"score"`
	FollowUp   bool    `json:"follow_up"`
	SessionID  string  `json:"session_id"`
	Options    []struct {
		ResponseID int64  `json:"response_id"`
		Category   string `json:"category"`
		Preview    string `json:"preview"`
	} `json:"clarification_options"`
}

// ask sends one question and adopts the session id the server returns, so
// later questions continue the same conversation.
func (c *apiClient) ask(ctx context.Context, question string) (answer, error) {
	resp, err := c.post(ctx, "/api/ask", api.AskRequest{Question: question})
	if err != nil {
		return answer{}, err
	}
	if sid := resp.Header.Get(api.SessionHeader); sid != "" {
		c.sessionID = sid
	}
	var a answer
	if err := decodeJSON(resp, &a); err != nil {
		return answer{}, err
	}
	return a, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		var envelope struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, envelope.Error.Message)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
