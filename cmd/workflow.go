package cmd

import (
	"context"
	"fmt"
	"io"

	awslib "github.com/eculver/aws-idp-token/pkg/aws"
	"github.com/eculver/aws-idp-token/pkg/token"
)

type outputMode int

const (
	modeDiagnostic outputMode = iota
	modeTokenOnly
)

type stage string

const (
	stageLoadSettings       stage = "load settings"
	stageResolveCredentials stage = "resolve credentials"
	stageSign               stage = "sign"
	stageEncode             stage = "encode"
	stageExchange           stage = "exchange"
	stageRender             stage = "render"
)

// stageError is the terminal Failed(stage, cause) state of an invocation.
type stageError struct {
	stage stage
	err   error
}

func (e *stageError) Error() string {
	return e.err.Error()
}

func (e *stageError) Unwrap() error {
	return e.err
}

type invocation struct {
	profile  string
	audience string
	scope    string
	region   string
	mode     outputMode
	signOnly bool
	exchange token.Options
}

func runWorkflow(ctx context.Context, inv invocation, deps runDeps) error {
	log := deps.logger.WithValues("profile", inv.profile, "region", inv.region)

	progress := deps.stdout
	if inv.mode == modeTokenOnly {
		progress = io.Discard
	}
	fmt.Fprintf(progress, "Generating AWS identity signature for profile '%s'...\n", inv.profile)

	provider, err := deps.credentials.ResolveCredentials(ctx, inv.profile)
	if err != nil {
		if awslib.IsProfileNotFound(err) {
			log.V(1).Info("profile not found in shared config")
		}
		return &stageError{stage: stageResolveCredentials, err: err}
	}
	log.V(1).Info("stage complete", "stage", stageResolveCredentials)

	assertion, err := deps.signer.Sign(ctx, provider, inv.region)
	if err != nil {
		return &stageError{stage: stageSign, err: fmt.Errorf("signing failed for profile %q: %w", inv.profile, err)}
	}
	log.V(1).Info("stage complete", "stage", stageSign, "method", assertion.Method, "url", assertion.URL)

	secret := awslib.Encode(assertion)
	req := token.NewRequest(secret, inv.audience, inv.scope)
	log.V(1).Info("stage complete", "stage", stageEncode, "length", len(secret))

	if inv.signOnly {
		if err := renderSignature(deps.stdout, inv, req); err != nil {
			return &stageError{stage: stageRender, err: err}
		}
		return nil
	}

	fmt.Fprintf(progress, "Requesting token for audience '%s'...\n", inv.audience)
	result, err := deps.newExchanger(inv.exchange, deps.logger).Exchange(ctx, req)
	if err != nil {
		return &stageError{stage: stageExchange, err: err}
	}
	log.V(1).Info("stage complete", "stage", stageExchange, "tokenType", result.TokenType)

	if err := renderToken(deps.stdout, inv, req, result); err != nil {
		return &stageError{stage: stageRender, err: err}
	}
	return nil
}
