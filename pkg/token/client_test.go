package token

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
)

type fakeHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (f fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return f.doFunc(req)
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestClientExchange(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		responseBody  string
		statusCode    int
		wantReason    Reason
		wantStatus    int
		wantErrSubstr string
		wantResult    Result
	}{
		{
			name:         "success",
			responseBody: `{"access_token":"abc","token_type":"Bearer"}`,
			statusCode:   http.StatusOK,
			wantResult:   Result{AccessToken: "abc", TokenType: "Bearer"},
		},
		{
			name:         "success with expirations",
			responseBody: `{"access_token":"abc","token_type":"Bearer","access_token_expiration":"2024-05-01T13:00:00Z","refresh_token":"r1","refresh_token_expiration":"2024-05-02T12:00:00Z"}`,
			statusCode:   http.StatusOK,
			wantResult: Result{
				AccessToken:            "abc",
				TokenType:              "Bearer",
				AccessTokenExpiration:  strPtr("2024-05-01T13:00:00Z"),
				RefreshToken:           strPtr("r1"),
				RefreshTokenExpiration: strPtr("2024-05-02T12:00:00Z"),
			},
		},
		{
			name:          "unauthorized",
			responseBody:  `{"error":"invalid_client"}`,
			statusCode:    http.StatusUnauthorized,
			wantReason:    ReasonStatus,
			wantStatus:    http.StatusUnauthorized,
			wantErrSubstr: `token endpoint returned HTTP 401: {"error":"invalid_client"}`,
		},
		{
			name:          "server error",
			responseBody:  "upstream unavailable",
			statusCode:    http.StatusBadGateway,
			wantReason:    ReasonStatus,
			wantStatus:    http.StatusBadGateway,
			wantErrSubstr: "HTTP 502",
		},
		{
			name:          "missing access token",
			responseBody:  `{"token_type":"Bearer"}`,
			statusCode:    http.StatusOK,
			wantReason:    ReasonMissingAccessToken,
			wantStatus:    http.StatusOK,
			wantErrSubstr: "without an access_token",
		},
		{
			name:          "invalid json response",
			responseBody:  "{not-json}",
			statusCode:    http.StatusOK,
			wantReason:    ReasonMalformedBody,
			wantStatus:    http.StatusOK,
			wantErrSubstr: "failed to parse token response (HTTP 200)",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte(tc.responseBody))
			}))
			defer server.Close()

			client := newClient(server.Client(), server.URL, logr.Discard())
			result, err := client.Exchange(context.Background(), NewRequest("c2VjcmV0", "sec-acl-api-svc", ""))

			if tc.wantErrSubstr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tc.wantErrSubstr)
				}
				if !strings.Contains(err.Error(), tc.wantErrSubstr) {
					t.Fatalf("expected error containing %q, got %q", tc.wantErrSubstr, err.Error())
				}
				var exErr *TokenExchangeFailure
				if !errors.As(err, &exErr) {
					t.Fatalf("expected TokenExchangeFailure, got %T", err)
				}
				if exErr.Reason != tc.wantReason {
					t.Fatalf("expected reason %s, got %s", tc.wantReason, exErr.Reason)
				}
				if exErr.StatusCode != tc.wantStatus {
					t.Fatalf("expected status %d, got %d", tc.wantStatus, exErr.StatusCode)
				}
				if exErr.Body != tc.responseBody {
					t.Fatalf("expected body %q, got %q", tc.responseBody, exErr.Body)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.wantResult, result); diff != "" {
				t.Fatalf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClientExchangeRequest(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		audience  string
		scope     string
		wantScope string
	}{
		{
			name:      "default scope",
			audience:  "sec-acl-api-svc",
			wantScope: "service.read",
		},
		{
			name:      "explicit scope",
			audience:  "doc-metadata-api-svc",
			scope:     "service.read.permissions",
			wantScope: "service.read.permissions",
		},
		{
			name:      "scope sent as given",
			audience:  "doc-metadata-api-svc",
			scope:     "Not A Real Scope!",
			wantScope: "Not A Real Scope!",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var (
				gotMethod      string
				gotContentType string
				gotBody        map[string]string
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotContentType = r.Header.Get("Content-Type")
				if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer"}`))
			}))
			defer server.Close()

			client := newClient(server.Client(), server.URL, logr.Discard())
			if _, err := client.Exchange(context.Background(), NewRequest("c2VjcmV0", tc.audience, tc.scope)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if gotMethod != http.MethodPost {
				t.Fatalf("expected POST, got %q", gotMethod)
			}
			if gotContentType != "application/json" {
				t.Fatalf("expected application/json, got %q", gotContentType)
			}
			want := map[string]string{
				"grant_type":    "client_credentials",
				"client_id":     "AWS",
				"client_secret": "c2VjcmV0",
				"audience":      tc.audience,
				"scope":         tc.wantScope,
			}
			if diff := cmp.Diff(want, gotBody); diff != "" {
				t.Fatalf("unexpected request body (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClientExchangeTransportFailure(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		doFunc        func(req *http.Request) (*http.Response, error)
		wantErrSubstr string
	}{
		{
			name: "connection refused",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
			wantErrSubstr: "failed to reach token endpoint https://token.invalid/auth: dial tcp: connection refused",
		},
		{
			name: "truncated body",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(errReader{})}, nil
			},
			wantErrSubstr: "failed to read token response: connection reset",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(fakeHTTPClient{doFunc: tc.doFunc}, "https://token.invalid/auth", logr.Discard())
			_, err := client.Exchange(context.Background(), NewRequest("c2VjcmV0", "aud", ""))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErrSubstr)
			}
			if !strings.Contains(err.Error(), tc.wantErrSubstr) {
				t.Fatalf("expected error containing %q, got %q", tc.wantErrSubstr, err.Error())
			}
			var transportErr *TransportFailure
			if !errors.As(err, &transportErr) {
				t.Fatalf("expected TransportFailure, got %T", err)
			}
			if transportErr.Endpoint != "https://token.invalid/auth" {
				t.Fatalf("unexpected endpoint %q", transportErr.Endpoint)
			}
		})
	}
}

func TestNewClientCertificateValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		insecure      bool
		wantErrSubstr string
	}{
		{name: "unverified certificate accepted", insecure: true},
		{name: "unverified certificate rejected", insecure: false, wantErrSubstr: "certificate"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer"}`))
			}))
			defer server.Close()

			client := NewClient(Options{Endpoint: server.URL, InsecureSkipVerify: tc.insecure, Timeout: 5 * time.Second}, logr.Discard())
			if client.InsecureSkipVerify() != tc.insecure {
				t.Fatalf("expected InsecureSkipVerify=%v", tc.insecure)
			}

			result, err := client.Exchange(context.Background(), NewRequest("c2VjcmV0", "aud", ""))
			if tc.wantErrSubstr != "" {
				var transportErr *TransportFailure
				if !errors.As(err, &transportErr) {
					t.Fatalf("expected TransportFailure, got %v", err)
				}
				if !strings.Contains(err.Error(), tc.wantErrSubstr) {
					t.Fatalf("expected error containing %q, got %q", tc.wantErrSubstr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.AccessToken != "abc" {
				t.Fatalf("expected access token abc, got %q", result.AccessToken)
			}
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	client := NewClient(Options{}, logr.Discard())
	if client.endpoint != DefaultEndpoint {
		t.Fatalf("expected endpoint %q, got %q", DefaultEndpoint, client.endpoint)
	}
	if client.InsecureSkipVerify() {
		t.Fatal("expected certificate validation when not configured")
	}
	httpClient, ok := client.client.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client, got %T", client.client)
	}
	if httpClient.Timeout != DefaultTimeout {
		t.Fatalf("expected timeout %s, got %s", DefaultTimeout, httpClient.Timeout)
	}
}

func TestResultAuthorizationHeader(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		result     Result
		wantHeader string
		wantExpiry time.Time
	}{
		{
			name:       "bearer",
			result:     Result{AccessToken: "abc", TokenType: "Bearer"},
			wantHeader: "Bearer abc",
		},
		{
			name:       "lowercase bearer",
			result:     Result{AccessToken: "abc", TokenType: "bearer"},
			wantHeader: "Bearer abc",
		},
		{
			name:       "missing token type",
			result:     Result{AccessToken: "abc"},
			wantHeader: "Bearer abc",
		},
		{
			name:       "rfc3339 expiry",
			result:     Result{AccessToken: "abc", TokenType: "Bearer", AccessTokenExpiration: strPtr("2024-05-01T13:00:00Z")},
			wantHeader: "Bearer abc",
			wantExpiry: time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
		},
		{
			name:       "unparseable expiry",
			result:     Result{AccessToken: "abc", TokenType: "Bearer", AccessTokenExpiration: strPtr("tomorrow")},
			wantHeader: "Bearer abc",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.result.AuthorizationHeader(); got != tc.wantHeader {
				t.Fatalf("expected %q, got %q", tc.wantHeader, got)
			}
			if got := tc.result.OAuth2Token().Expiry; !got.Equal(tc.wantExpiry) {
				t.Fatalf("expected expiry %v, got %v", tc.wantExpiry, got)
			}
		})
	}
}

func TestNewRequestDefaultScope(t *testing.T) {
	t.Parallel()

	got := NewRequest("c2VjcmV0", "sec-acl-api-svc", "")
	want := Request{
		GrantType:    "client_credentials",
		ClientID:     "AWS",
		ClientSecret: "c2VjcmV0",
		Audience:     "sec-acl-api-svc",
		Scope:        "service.read",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected request (-want +got):\n%s", diff)
	}
}

func strPtr(s string) *string {
	return &s
}
