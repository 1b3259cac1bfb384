// Package remote is the HTTP client for the notes API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/retry"
	"go-notes-workspace/pkg/apierror"
)

const apiPrefix = "/api/v1"

// Client talks to the notes API. Every method either returns the decoded
// payload or an *apierror.APIError; transport failures are reported with
// apierror.KindNetwork.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
	log         *slog.Logger

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	onRefresh    func(model.TokenPair)
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		retryConfig: cfg.RetryConfig,
		log:         cfg.Logger.With("component", "remote"),
	}
}

func (c *Client) SetTokens(accessToken string, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
}

func (c *Client) Tokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

// OnRefresh registers a callback invoked after tokens were rotated, so the
// caller can persist the new pair.
func (c *Client) OnRefresh(fn func(model.TokenPair)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierror.Network(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return apierror.New("NETWORK_ERROR", apierror.FallbackMessage, fmt.Sprintf("health returned %d", resp.StatusCode), resp.StatusCode)
	}
	return nil
}

// call performs a JSON request and decodes the envelope's data into T.
// GET requests are retried on transient failures; a 401 triggers one token
// refresh when a refresh token is available.
func call[T any](ctx context.Context, c *Client, method string, path string, body any) (T, error) {
	var zero T

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}

	cfg := c.retryConfig
	if method != http.MethodGet {
		cfg.MaxAttempts = 1
	}

	attempt := func(ctx context.Context) (T, error) {
		return roundTrip[T](ctx, c, method, path, payload)
	}

	result, err := retry.Do(ctx, cfg, attempt)
	if err == nil || !isUnauthorized(err) || strings.HasPrefix(path, apiPrefix+"/auth/") {
		return result, err
	}

	if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
		return zero, err
	}
	return retry.Do(ctx, cfg, attempt)
}

func roundTrip[T any](ctx context.Context, c *Client, method string, path string, payload []byte) (T, error) {
	var zero T

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return zero, apierror.Network(ctx.Err())
		}
		return zero, retry.Transient(apierror.Network(err))
	}
	defer resp.Body.Close()

	return decodeResponse[T](resp)
}

func decodeResponse[T any](resp *http.Response) (T, error) {
	var zero T

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, retry.Transient(apierror.Network(err))
	}

	var envelope model.Envelope[T]
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode >= 400 || (decodeErr == nil && !envelope.Success) {
		apiErr := apierror.New("HTTP_"+fmt.Sprint(resp.StatusCode), http.StatusText(resp.StatusCode), "", resp.StatusCode)
		if decodeErr == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Details = envelope.Error.Details
		} else if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			apiErr.Code = "NETWORK_ERROR"
			apiErr.Message = apierror.FallbackMessage
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return zero, retry.Transient(apiErr)
		}
		return zero, apiErr
	}

	if decodeErr != nil {
		return zero, apierror.New("INVALID_RESPONSE", "unexpected response from server", decodeErr.Error(), resp.StatusCode)
	}

	return envelope.Data, nil
}

func isUnauthorized(err error) bool {
	var apiErr *apierror.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusUnauthorized
}

func unwrapTransient(err error) error {
	return retry.Cause(err)
}
