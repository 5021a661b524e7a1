// Package ner extracts named entities from translated announcement text
// using a Hugging Face token-classification inference endpoint.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

// ErrUnavailable reports that the model backend cannot currently serve
// requests, typically while the hosted model is cold-loading. Location
// extraction is a hard dependency of structuring, so callers gate whole
// utilities on it rather than produce records with no addresses.
var ErrUnavailable = errors.New("entity extraction service unavailable")

// Client calls a token-classification model served over the Hugging
// Face inference protocol.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an entity extraction client. The endpoint points at
// the model, e.g. ".../models/dslim/bert-base-NER".
func NewClient(endpoint, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type request struct {
	Inputs  string `json:"inputs"`
	Options struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

// Extract returns the entities found in text, aggregated by the model
// into whole words with a group label and confidence score.
func (c *Client) Extract(ctx context.Context, text string) ([]domain.Entity, error) {
	body, err := json.Marshal(request{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: model loading", ErrUnavailable)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var entities []domain.Entity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}

	c.logger.Debug("extracted entities", "count", len(entities))
	return entities, nil
}

// Available probes the backend with a one-word input. A cold model
// answers 503 until loaded; anything but a 200 counts as unavailable.
func (c *Client) Available(ctx context.Context) bool {
	body, err := json.Marshal(request{Inputs: "Yerevan"})
	if err != nil {
		return false
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}
