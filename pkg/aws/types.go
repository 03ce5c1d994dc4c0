package aws

import (
	"context"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
)

// Header is a single HTTP header as it was signed.
type Header struct {
	Name  string
	Value string
}

// SignedAssertion is a signed sts:GetCallerIdentity request. It is never sent to
// AWS by this program; the token endpoint replays it to establish the caller.
type SignedAssertion struct {
	Method  string
	URL     string
	Headers []Header
	// Body is UTF-8 text; it travels as a JSON string in the encoded assertion.
	Body []byte
}

// Header returns the value of the named header and whether it was present.
func (a SignedAssertion) Header(name string) (string, bool) {
	for _, h := range a.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// CredentialResolver resolves a named profile into a credentials provider.
type CredentialResolver interface {
	ResolveCredentials(ctx context.Context, profile string) (awsv2.CredentialsProvider, error)
}

// AssertionSigner produces a signed identity assertion for a region.
type AssertionSigner interface {
	Sign(ctx context.Context, provider awsv2.CredentialsProvider, region string) (SignedAssertion, error)
}
