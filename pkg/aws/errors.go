package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ConfigurationError means the requested profile is missing or malformed in the
// local AWS configuration. It is not retryable.
type ConfigurationError struct {
	Profile string
	Path    string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("could not load %q AWS profile, make sure the profile exists in your AWS credentials file (%s)", e.Profile, e.Path)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// SigningFailure means credentials could not be retrieved (including any role
// assumption) or the identity request could not be signed.
type SigningFailure struct {
	Region string
	Err    error
}

func (e *SigningFailure) Error() string {
	var apiErr smithy.APIError
	if errors.As(e.Err, &apiErr) {
		return fmt.Sprintf("failed to sign identity request in %s (%s): %s", e.Region, apiErr.ErrorCode(), e.Err)
	}
	return fmt.Sprintf("failed to sign identity request in %s: %s", e.Region, e.Err)
}

func (e *SigningFailure) Unwrap() error {
	return e.Err
}
