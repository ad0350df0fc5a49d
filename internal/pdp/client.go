// Package pdp talks to the external policy decision point that owns the deployment policy gate.
package pdp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
)

const (
	healthPath  = "/healthy"
	decidePath  = "/allowed"
	maxBodySize = 4 << 20
)

// Client is an HTTP client for the policy decision point.
type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	timeout        time.Duration
	readyAttempts  int
	readyInterval  time.Duration
	decideAttempts int
	retryInterval  time.Duration
	logger         *slog.Logger
}

var _ contract.PolicyDecider = &Client{}

// NewClient creates a client from validated policy settings.
func NewClient(cfg contract.PolicyConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = contract.DefaultPolicyTimeout
	}
	return &Client{
		baseURL:        cfg.URL,
		token:          cfg.Token,
		httpClient:     &http.Client{},
		timeout:        timeout,
		readyAttempts:  max(cfg.ReadyAttempts, 1),
		readyInterval:  cfg.ReadyInterval,
		decideAttempts: max(cfg.DecideAttempts, 1),
		retryInterval:  time.Second,
		logger:         logger,
	}
}

// WaitReady polls the health endpoint with a constant backoff until it answers 200.
func (c *Client) WaitReady(ctx context.Context) error {
	attempt := 0
	probe := func() error {
		attempt++
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+healthPath, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health check returned status %d", resp.StatusCode)
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("policy decision point not ready", "attempt", attempt, "retry_in", wait, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.readyInterval), uint64(c.readyAttempts-1)), ctx)
	if err := backoff.RetryNotify(probe, b, notify); err != nil {
		return fmt.Errorf("%w: not ready after %d attempts: %v", contract.ErrPolicyUnavailable, attempt, err)
	}
	c.logger.Info("policy decision point ready", "attempts", attempt)
	return nil
}

// Decide posts the authorization request. Only transport errors are retried.
// A non-200 status or an undecodable body fails immediately.
func (c *Client) Decide(ctx context.Context, payload schema.PolicyRequest) (schema.PolicyDecision, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return schema.PolicyDecision{}, fmt.Errorf("encoding policy request: %w", err)
	}

	call := func() (schema.PolicyDecision, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+decidePath, bytes.NewReader(body))
		if err != nil {
			return schema.PolicyDecision{}, backoff.Permanent(err)
		}
		c.authorize(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("policy request failed", "error", err)
			return schema.PolicyDecision{}, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return schema.PolicyDecision{}, backoff.Permanent(fmt.Errorf("policy request returned status %d", resp.StatusCode))
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return schema.PolicyDecision{}, err
		}
		decision, err := decodeDecision(data)
		if err != nil {
			return schema.PolicyDecision{}, backoff.Permanent(err)
		}
		return decision, nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), uint64(c.decideAttempts-1)), ctx)
	decision, err := backoff.RetryWithData(call, b)
	if err != nil {
		return schema.PolicyDecision{}, fmt.Errorf("%w: %v", contract.ErrPolicyUnavailable, err)
	}
	return decision, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}

var errEmptyBody = errors.New("empty response body")

// decodeDecision parses a decision body. The allow field stays nil when absent.
func decodeDecision(data []byte) (schema.PolicyDecision, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return schema.PolicyDecision{}, errEmptyBody
	}
	var decision schema.PolicyDecision
	if err := json.Unmarshal(data, &decision); err != nil {
		return schema.PolicyDecision{}, fmt.Errorf("invalid policy response: %w", err)
	}
	return decision, nil
}
