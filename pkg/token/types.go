package token

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

const (
	// GrantType is the only grant this client speaks.
	GrantType = "client_credentials"
	// ClientID tells the endpoint the secret is a signed AWS identity assertion.
	ClientID = "AWS"
	// DefaultScope is requested when the caller does not name one.
	DefaultScope = "service.read"
)

// Request is the JSON body posted to the token endpoint.
type Request struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
	Scope        string `json:"scope"`
}

// NewRequest builds a client-credentials request for an encoded assertion. The scope
// is passed through untouched; an empty scope becomes DefaultScope.
func NewRequest(encodedAssertion, audience, scope string) Request {
	if scope == "" {
		scope = DefaultScope
	}
	return Request{
		GrantType:    GrantType,
		ClientID:     ClientID,
		ClientSecret: encodedAssertion,
		Audience:     audience,
		Scope:        scope,
	}
}

// Result is the token endpoint's successful response.
type Result struct {
	AccessToken            string  `json:"access_token"`
	TokenType              string  `json:"token_type"`
	AccessTokenExpiration  *string `json:"access_token_expiration,omitempty"`
	RefreshToken           *string `json:"refresh_token,omitempty"`
	RefreshTokenExpiration *string `json:"refresh_token_expiration,omitempty"`
}

// OAuth2Token returns the result as an oauth2 token. Expiry is only set when the
// endpoint reported an RFC 3339 timestamp.
func (r Result) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
	}
	if r.RefreshToken != nil {
		tok.RefreshToken = *r.RefreshToken
	}
	if r.AccessTokenExpiration != nil {
		if expiry, err := time.Parse(time.RFC3339, *r.AccessTokenExpiration); err == nil {
			tok.Expiry = expiry
		}
	}
	return tok
}

// AuthorizationHeader returns the value to send in an Authorization header.
func (r Result) AuthorizationHeader() string {
	tok := r.OAuth2Token()
	return tok.Type() + " " + tok.AccessToken
}

// Options configure the token endpoint transport.
type Options struct {
	Endpoint string
	// InsecureSkipVerify disables server certificate validation. The token service
	// sits behind an internal load balancer with a non-public name, so this is on by
	// default and must be set explicitly per environment.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Exchanger trades an encoded identity assertion for a bearer token.
type Exchanger interface {
	Exchange(ctx context.Context, req Request) (Result, error)
}
