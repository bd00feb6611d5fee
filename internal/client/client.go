// Package client is the agent-side library for the hub's wire contract:
// register, poll open tasks, claim, submit and publish genes. Transport
// failures and 5xx responses retry under an explicit policy; reason-coded
// claim losses come back as data, never as retried errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "http://localhost:8080"

// BackoffStrategy yields the wait before retry number attempt (0-based).
type BackoffStrategy interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same interval between every attempt.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Delay(int) time.Duration {
	return b.Interval
}

// ExponentialBackoff doubles from Base up to Max, with +-25% jitter so a
// fleet of agents does not retry in lockstep.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	max := b.Max
	if max <= 0 {
		max = 500 * time.Millisecond
	}
	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay/2) + 1))
	return delay - delay/4 + jitter
}

type RetryPolicy struct {
	// MaxAttempts counts the first try too; values below 1 mean one attempt.
	MaxAttempts int
	Backoff     BackoffStrategy
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		Backoff:     ExponentialBackoff{Base: 50 * time.Millisecond, Max: 500 * time.Millisecond},
	}
}

// APIError is a non-200 hub reply. Status >= 500 is retryable.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hub error (%d): %s", e.Status, e.Message)
}

type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Retry      RetryPolicy
	Logger     *zap.Logger
}

type Client struct {
	host       string
	token      string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *zap.Logger
}

func New(opts Options) *Client {
	host := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if host == "" {
		host = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	if retry.Backoff == nil {
		retry.Backoff = DefaultRetryPolicy().Backoff
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		host:       host,
		token:      opts.Token,
		httpClient: httpClient,
		retry:      retry,
		logger:     logger,
	}
}

// SetToken installs the bearer token for subsequent calls, typically the one
// returned by Register.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Task mirrors the hub's bounty projection.
type Task struct {
	ID              string
	Title           string
	Type            string
	Requirements    json.RawMessage
	Reward          int64
	MinReputation   int64
	Status          string
	ClaimedBy       *string
	ClaimExpiresAt  *time.Time
	PublishDeadline *time.Time
	SubmittedGeneID *string
}

// ClaimOutcome is the reason-coded result of one claim attempt.
type ClaimOutcome struct {
	OK             bool       `json:"ok"`
	Reason         string     `json:"reason"`
	ClaimExpiresAt *time.Time `json:"claimExpiresAt"`
}

// Final reports whether retrying the same claim can ever change the answer.
// Contention and policy reasons are final; only transport-level failures are
// worth another attempt.
func (o ClaimOutcome) Final() bool {
	return o.OK || o.Reason != ""
}

type RegisterResult struct {
	Token          string     `json:"token"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt"`
}

type GeneInput struct {
	ID         string             `json:"id,omitempty"`
	Name       string             `json:"name"`
	Formula    string             `json:"formula"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
	ParentIDs  []string           `json:"parentIds,omitempty"`
}

// Register enrolls the agent and keeps the issued token (when auth is on) for
// subsequent calls.
func (c *Client) Register(ctx context.Context, agentID string) (*RegisterResult, error) {
	var res RegisterResult
	err := c.doRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/api/v1/agents/register",
			nil, map[string]string{"agentId": agentID}, &res)
	})
	if err != nil {
		return nil, err
	}
	if res.Token != "" {
		c.token = res.Token
	}
	return &res, nil
}

// ListTasks fetches tasks filtered by status ("" for all).
func (c *Client) ListTasks(ctx context.Context, status string, limit int) ([]Task, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	var tasks []Task
	err := c.doRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, "/api/v1/tasks", query, nil, &tasks)
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Claim races for the task. A lost race is not an error: inspect the outcome
// reason. Only transport failures and hub 5xx are retried.
func (c *Client) Claim(ctx context.Context, taskID, agentID string) (ClaimOutcome, error) {
	var out ClaimOutcome
	err := c.doRetry(ctx, func() error {
		out = ClaimOutcome{}
		return c.do(ctx, http.MethodPost, "/api/v1/tasks/"+url.PathEscape(taskID)+"/claim",
			nil, map[string]string{"agentId": agentID}, &out)
	})
	if err != nil {
		return ClaimOutcome{}, err
	}
	return out, nil
}

// Submit hands in a gene against a claimed task.
func (c *Client) Submit(ctx context.Context, taskID, agentID, geneID string) error {
	return c.doRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/api/v1/tasks/"+url.PathEscape(taskID)+"/submit",
			nil, map[string]string{"agentId": agentID, "geneId": geneID}, nil)
	})
}

// PutGene publishes a gene and returns its id.
func (c *Client) PutGene(ctx context.Context, in GeneInput) (string, error) {
	var res struct {
		GeneID string `json:"geneId"`
	}
	err := c.doRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/api/v1/genes", nil, in, &res)
	})
	if err != nil {
		return "", err
	}
	return res.GeneID, nil
}

// Get issues a GET against an arbitrary hub path and decodes the envelope
// data into out, retrying per policy. It covers the endpoints the typed
// methods do not.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, query, nil, out)
	})
}

// Post issues a POST with a JSON body against an arbitrary hub path.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, path, nil, body, out)
	})
}

// PollOpenTasks calls fn with the current open tasks every interval until ctx
// ends or fn returns an error. List failures were already retried per policy,
// so here they are logged and the loop keeps going.
func (c *Client) PollOpenTasks(ctx context.Context, interval time.Duration, fn func(context.Context, []Task) error) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		tasks, err := c.ListTasks(ctx, "open", 0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("poll open tasks", zap.Error(err))
		} else if err := fn(ctx, tasks); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// envelope mirrors the hub's response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			message = env.Message
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) doRetry(ctx context.Context, fn func() error) error {
	attempts := c.retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts-1 {
			return err
		}
		delay := c.retry.Backoff.Delay(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}
