package token

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
)

const (
	// DefaultEndpoint is the internal token service.
	DefaultEndpoint = "https://idp-auth-s2s-svc.lb.service/auth/v1/access_token"
	// DefaultTimeout bounds a single exchange.
	DefaultTimeout = 15 * time.Second
)

type tokenHTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts client-credentials requests to the token endpoint.
type Client struct {
	client             tokenHTTPClient
	endpoint           string
	insecureSkipVerify bool
	logger             logr.Logger
}

// NewClient creates a token client. Certificate validation is controlled only by
// opts.InsecureSkipVerify.
func NewClient(opts Options, logger logr.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // internal load-balanced service without a public certificate
	}

	c := newClient(&http.Client{Timeout: timeout, Transport: transport}, endpoint, logger)
	c.insecureSkipVerify = opts.InsecureSkipVerify
	return c
}

func newClient(client tokenHTTPClient, endpoint string, logger logr.Logger) *Client {
	return &Client{
		client:   client,
		endpoint: endpoint,
		logger:   logger,
	}
}

// InsecureSkipVerify reports whether server certificates are left unverified.
func (c *Client) InsecureSkipVerify() bool {
	return c.insecureSkipVerify
}

// Exchange makes exactly one attempt to trade req for a token.
func (c *Client) Exchange(ctx context.Context, req Request) (Result, error) {
	if closer, ok := c.client.(interface{ CloseIdleConnections() }); ok {
		defer closer.CloseIdleConnections()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal token request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.V(1).Info("requesting token", "endpoint", c.endpoint, "audience", req.Audience, "scope", req.Scope)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, &TransportFailure{Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &TransportFailure{Endpoint: c.endpoint, Err: fmt.Errorf("failed to read token response: %w", err)}
	}

	c.logger.V(1).Info("token endpoint responded", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &TokenExchangeFailure{
			Reason:     ReasonStatus,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, &TokenExchangeFailure{
			Reason:     ReasonMalformedBody,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        err,
		}
	}

	if result.AccessToken == "" {
		return Result{}, &TokenExchangeFailure{
			Reason:     ReasonMissingAccessToken,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return result, nil
}
