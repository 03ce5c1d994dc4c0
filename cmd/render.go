package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eculver/aws-idp-token/pkg/token"
)

func renderToken(w io.Writer, inv invocation, req token.Request, result token.Result) error {
	if inv.mode == modeTokenOnly {
		_, err := io.WriteString(w, result.AccessToken)
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nToken issued for profile '%s'\n", inv.profile)
	fmt.Fprintf(&b, "  Audience:   %s\n", req.Audience)
	fmt.Fprintf(&b, "  Scope:      %s\n", req.Scope)
	fmt.Fprintf(&b, "  Region:     %s\n", inv.region)
	fmt.Fprintf(&b, "  Token type: %s\n", result.TokenType)
	fmt.Fprintf(&b, "  Expires:    %s\n", valueOr(result.AccessTokenExpiration, "not provided"))
	if result.RefreshToken != nil {
		fmt.Fprintf(&b, "  Refresh:    provided, expires %s\n", valueOr(result.RefreshTokenExpiration, "not provided"))
	}

	b.WriteString("\n=== ACCESS TOKEN ===\n")
	b.WriteString(result.AccessToken + "\n")
	b.WriteString("====================\n")

	b.WriteString("\n=== AUTHORIZATION HEADER ===\n")
	fmt.Fprintf(&b, "Authorization: %s\n", result.AuthorizationHeader())
	b.WriteString("============================\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func renderSignature(w io.Writer, inv invocation, req token.Request) error {
	if inv.mode == modeTokenOnly {
		_, err := io.WriteString(w, req.ClientSecret)
		return err
	}

	insecure := ""
	if inv.exchange.InsecureSkipVerify {
		insecure = "-k "
	}

	var b strings.Builder
	b.WriteString("\n=== CURL COMMAND ===\n")
	fmt.Fprintf(&b, "curl %s-X POST %q \\\n", insecure, inv.exchange.Endpoint)
	b.WriteString("  -H \"Content-Type: application/json\" \\\n")
	b.WriteString("  -d '{\n")
	fmt.Fprintf(&b, "    \"grant_type\": %q,\n", req.GrantType)
	fmt.Fprintf(&b, "    \"client_id\": %q,\n", req.ClientID)
	fmt.Fprintf(&b, "    \"client_secret\": %q,\n", req.ClientSecret)
	fmt.Fprintf(&b, "    \"audience\": %q,\n", req.Audience)
	fmt.Fprintf(&b, "    \"scope\": %q\n", req.Scope)
	b.WriteString("  }'\n")
	b.WriteString("====================\n")

	b.WriteString("\n=== CLIENT SECRET ===\n")
	b.WriteString(req.ClientSecret + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// reportError writes the one-line error and, outside token-only mode, the stage
// and every wrapped cause.
func reportError(w io.Writer, err error, mode outputMode) {
	fmt.Fprintf(w, "Error: %s\n", err)
	if mode == modeTokenOnly {
		return
	}

	cause := err
	var se *stageError
	if errors.As(err, &se) {
		fmt.Fprintf(w, "  stage: %s\n", se.stage)
		cause = se.err
	}
	for c := errors.Unwrap(cause); c != nil; c = errors.Unwrap(c) {
		fmt.Fprintf(w, "  caused by: %s\n", c)
	}
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
