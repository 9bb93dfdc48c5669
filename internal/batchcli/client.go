package batchcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/guestrank/internal/domain/model"
)

// Client talks to the importance API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type batchRequest struct {
	Guests       []model.Guest `json:"guests"`
	ForceRefresh bool          `json:"force_refresh"`
}

// BatchOutcome is one guest entry of a batch response.
type BatchOutcome struct {
	GuestID string  `json:"guest_id"`
	Success bool    `json:"success"`
	Data    *Scored `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// BatchResponse is the body of POST /importance/batch.
type BatchResponse struct {
	Success   bool           `json:"success"`
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Results   []BatchOutcome `json:"results"`
	Error     string         `json:"error"`
}

// Health fails unless GET /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: healthz returned %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Batch posts one chunk of guests to /importance/batch.
func (c *Client) Batch(ctx context.Context, guests []model.Guest, force bool) (BatchResponse, error) {
	var out BatchResponse
	body, err := json.Marshal(batchRequest{Guests: guests, ForceRefresh: force})
	if err != nil {
		return out, fmt.Errorf("%w: encode: %w", ErrBatch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/importance/batch", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrBatch, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrBatch, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%w: decode (status %d): %w", ErrBatch, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("%w: status %d: %s", ErrBatch, resp.StatusCode, out.Error)
	}
	return out, nil
}
