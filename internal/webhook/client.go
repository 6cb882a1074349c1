// Package webhook delivers finished interviews to the recruiting workflow.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/logger"
)

const (
	DefaultURL     = "https://n8n.srv833787.hstgr.cloud/webhook/fd67f0c2-48d5-4cdc-9796-0d7a2a948f20"
	DefaultTimeout = 15 * time.Second

	userAgent    = "spigell/self-interview"
	contentType  = "application/json"
	maxBodyBytes = 64 << 10
)

// Submission is the payload posted once per finished interview.
type Submission struct {
	RecordingLink string `json:"recordingLink"`
	FathomSummary string `json:"fathomSummary"`
	UniqueCode    string `json:"unique_code"`
}

// Receipt is whatever the workflow chose to answer with. Every field is
// optional.
type Receipt struct {
	ID      string                 `mapstructure:"id"`
	Status  string                 `mapstructure:"status"`
	Message string                 `mapstructure:"message"`
	Extra   map[string]interface{} `mapstructure:",remain"`
}

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	URL        string
}

func New(logger *zap.Logger, url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
		URL:       url,
	}
}

// Submit posts s exactly once. It does not retry.
func (c *Client) Submit(ctx context.Context, s Submission) (*Receipt, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.UserAgent)

	c.logger.Debug("posting submission",
		zap.String("url", c.URL),
		zap.String(logger.FieldCode, logger.TruncateForLog(s.UniqueCode, 8)),
		zap.String("summary", logger.TruncateForLog(s.FathomSummary, 120)),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting submission: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       logger.TruncateForLog(string(body), 512),
		}
	}

	receipt := decodeReceipt(body)
	c.logger.Info("submission delivered",
		zap.Int("status", resp.StatusCode),
		zap.String("receipt", receipt.Message),
	)

	return receipt, nil
}

// decodeReceipt never fails: bodies that are not a JSON object give an empty
// receipt.
func decodeReceipt(body []byte) *Receipt {
	receipt := &Receipt{}

	var raw map[string]interface{}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &raw) != nil {
		return receipt
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           receipt,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return receipt
	}
	if err := decoder.Decode(raw); err != nil {
		return &Receipt{Extra: raw}
	}

	return receipt
}
