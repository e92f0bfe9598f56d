// Package client sends PQL queries to the prediction service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gratitude5dee/kumorfm-go/internal/config"
	"github.com/gratitude5dee/kumorfm-go/pkg/query"
)

// Prediction is one entity's predicted value
type Prediction struct {
	Entity      any      `json:"entity"`
	Value       any      `json:"value"`
	Probability *float64 `json:"probability,omitempty"`
}

// PredictionResult is the service's answer to a query
type PredictionResult struct {
	Query       string       `json:"query"`
	Predictions []Prediction `json:"predictions"`
	RequestID   string       `json:"-"`
}

// Client posts queries to <BaseURL>/predict
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// New creates a client, failing when the configuration cannot reach the
// service
func New(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// Predict sends a PQL query and returns the decoded predictions
func (c *Client) Predict(ctx context.Context, q string) (*PredictionResult, error) {
	endpoint, err := buildURL(c.cfg.BaseURL, "predict")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"query": q})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	c.logger.WithFields(logrus.Fields{
		"url":        endpoint,
		"request_id": requestID,
	}).Debug("Sending prediction query")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call prediction service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status":     resp.StatusCode,
			"request_id": requestID,
		}).Error("Prediction service returned error")
		return nil, fmt.Errorf("prediction service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result PredictionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Query == "" {
		result.Query = q
	}
	result.RequestID = requestID

	c.logger.WithField("request_id", requestID).Debugf("Received %d predictions", len(result.Predictions))
	return &result, nil
}

// PredictBuilder builds the query and sends it
func (c *Client) PredictBuilder(ctx context.Context, b *query.Builder) (*PredictionResult, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return c.Predict(ctx, q)
}

// buildURL constructs a URL by parsing the base and joining path segments
func buildURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)

	return u.String(), nil
}
