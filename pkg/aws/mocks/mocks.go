package mocks

import (
	"context"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	awslib "github.com/eculver/aws-idp-token/pkg/aws"
)

type CredentialResolver struct {
	ResolveCredentialsFunc func(ctx context.Context, profile string) (awsv2.CredentialsProvider, error)

	ResolveCredentialsCalls int
	LastProfile             string
}

func (m *CredentialResolver) ResolveCredentials(ctx context.Context, profile string) (awsv2.CredentialsProvider, error) {
	m.ResolveCredentialsCalls++
	m.LastProfile = profile
	if m.ResolveCredentialsFunc == nil {
		return nil, fmt.Errorf("ResolveCredentialsFunc is not set")
	}
	return m.ResolveCredentialsFunc(ctx, profile)
}

type Signer struct {
	SignFunc func(ctx context.Context, provider awsv2.CredentialsProvider, region string) (awslib.SignedAssertion, error)

	SignCalls  int
	LastRegion string
}

func (m *Signer) Sign(ctx context.Context, provider awsv2.CredentialsProvider, region string) (awslib.SignedAssertion, error) {
	m.SignCalls++
	m.LastRegion = region
	if m.SignFunc == nil {
		return awslib.SignedAssertion{}, fmt.Errorf("SignFunc is not set")
	}
	return m.SignFunc(ctx, provider, region)
}
