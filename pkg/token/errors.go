package token

import "fmt"

// Reason distinguishes the ways the token endpoint can reject an exchange.
type Reason int

const (
	// ReasonStatus is a non-2xx HTTP response.
	ReasonStatus Reason = iota
	// ReasonMalformedBody is a 2xx response whose body is not a token result.
	ReasonMalformedBody
	// ReasonMissingAccessToken is a 2xx response without an access_token.
	ReasonMissingAccessToken
)

func (r Reason) String() string {
	switch r {
	case ReasonStatus:
		return "status"
	case ReasonMalformedBody:
		return "malformed body"
	case ReasonMissingAccessToken:
		return "missing access token"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// TokenExchangeFailure means the endpoint was reached but did not issue a token.
type TokenExchangeFailure struct {
	Reason     Reason
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeFailure) Error() string {
	switch e.Reason {
	case ReasonStatus:
		return fmt.Sprintf("token endpoint returned HTTP %d: %s", e.StatusCode, e.Body)
	case ReasonMalformedBody:
		return fmt.Sprintf("failed to parse token response (HTTP %d): %s", e.StatusCode, e.Err)
	case ReasonMissingAccessToken:
		return fmt.Sprintf("token endpoint returned HTTP %d without an access_token", e.StatusCode)
	default:
		return fmt.Sprintf("token exchange failed (%s)", e.Reason)
	}
}

func (e *TokenExchangeFailure) Unwrap() error {
	return e.Err
}

// TransportFailure means the endpoint could not be reached or its response could
// not be read (DNS, connection refused, TLS handshake, truncated body).
type TransportFailure struct {
	Endpoint string
	Err      error
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("failed to reach token endpoint %s: %s", e.Endpoint, e.Err)
}

func (e *TransportFailure) Unwrap() error {
	return e.Err
}
