package ratelimit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServiceConfig configures the external rate limit service client.
type ServiceConfig struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Service delegates the verdict to an external endpoint. The endpoint
// receives {"key": "<client key>"} and answers {"success": bool}, where
// success false means the client is over its limit.
type Service struct {
	url  string
	http *http.Client
}

// NewService creates a Service limiter. The timeout defaults to 2s when
// unset; HTTPClient overrides the default client for testing.
func NewService(cfg ServiceConfig) *Service {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Service{url: cfg.URL, http: client}
}

// Allow asks the service for a verdict on key.
func (s *Service) Allow(ctx context.Context, key string) (bool, error) {
	payload, err := json.Marshal(map[string]string{"key": key})
	if err != nil {
		return false, fmt.Errorf("marshal limiter payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create limiter request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("call rate limit service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("rate limit service responded %s", resp.Status)
	}
	var verdict struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("decode limiter verdict: %w", err)
	}
	return verdict.Success, nil
}
