package aws

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const (
	stsSigningName         = "sts"
	getCallerIdentityQuery = "Action=GetCallerIdentity&Version=2011-06-15"
)

type stsEndpointResolver interface {
	ResolveEndpoint(ctx context.Context, params sts.EndpointParameters) (url.URL, error)
}

type defaultSTSEndpointResolver struct {
	resolver sts.EndpointResolverV2
}

func (d defaultSTSEndpointResolver) ResolveEndpoint(ctx context.Context, params sts.EndpointParameters) (url.URL, error) {
	endpoint, err := d.resolver.ResolveEndpoint(ctx, params)
	if err != nil {
		return url.URL{}, err
	}
	return endpoint.URI, nil
}

// IdentitySigner signs sts:GetCallerIdentity requests with SigV4.
type IdentitySigner struct {
	signer    v4.HTTPSigner
	endpoints stsEndpointResolver
	now       func() time.Time
}

// NewIdentitySigner creates a signer backed by the AWS SDK v4 signer.
func NewIdentitySigner() *IdentitySigner {
	return newIdentitySigner(
		v4.NewSigner(),
		defaultSTSEndpointResolver{resolver: sts.NewDefaultEndpointResolverV2()},
		time.Now,
	)
}

func newIdentitySigner(signer v4.HTTPSigner, endpoints stsEndpointResolver, now func() time.Time) *IdentitySigner {
	return &IdentitySigner{
		signer:    signer,
		endpoints: endpoints,
		now:       now,
	}
}

// Sign retrieves credentials from provider and signs a GetCallerIdentity request
// scoped to region. The signature is only valid for the returned tuple and for the
// verifier's clock-skew window.
func (s *IdentitySigner) Sign(ctx context.Context, provider awsv2.CredentialsProvider, region string) (SignedAssertion, error) {
	if region == "" {
		return SignedAssertion{}, &SigningFailure{Region: region, Err: errors.New("region is required")}
	}
	if provider == nil {
		return SignedAssertion{}, &SigningFailure{Region: region, Err: errors.New("no credentials provider")}
	}

	target, err := s.identityURL(ctx, region)
	if err != nil {
		return SignedAssertion{}, &SigningFailure{Region: region, Err: err}
	}

	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return SignedAssertion{}, &SigningFailure{Region: region, Err: fmt.Errorf("failed to retrieve credentials: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return SignedAssertion{}, &SigningFailure{Region: region, Err: fmt.Errorf("failed to build identity request: %w", err)}
	}
	req.Host = target.Host

	var body []byte
	payloadHash := sha256.Sum256(body)
	if err := s.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(payloadHash[:]), stsSigningName, region, s.now().UTC()); err != nil {
		return SignedAssertion{}, &SigningFailure{Region: region, Err: fmt.Errorf("failed to sign identity request: %w", err)}
	}

	return SignedAssertion{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: signedHeaders(req),
		Body:    body,
	}, nil
}

func (s *IdentitySigner) identityURL(ctx context.Context, region string) (url.URL, error) {
	target, err := s.endpoints.ResolveEndpoint(ctx, sts.EndpointParameters{
		Region:            awsv2.String(region),
		UseDualStack:      awsv2.Bool(false),
		UseFIPS:           awsv2.Bool(false),
		UseGlobalEndpoint: awsv2.Bool(false),
	})
	if err != nil {
		return url.URL{}, fmt.Errorf("failed to resolve STS endpoint: %w", err)
	}
	if target.Host == "" {
		return url.URL{}, fmt.Errorf("resolved STS endpoint %q has no host", target.String())
	}

	target.Path = "/"
	target.RawQuery = getCallerIdentityQuery
	return target, nil
}

// signedHeaders lists Host first, followed by the headers the signer set in
// sorted canonical order.
func signedHeaders(req *http.Request) []Header {
	names := make([]string, 0, len(req.Header))
	for name := range req.Header {
		if name == "Host" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]Header, 0, len(names)+1)
	headers = append(headers, Header{Name: "Host", Value: req.Host})
	for _, name := range names {
		headers = append(headers, Header{Name: name, Value: req.Header.Get(name)})
	}
	return headers
}
