package aws

import (
	"context"
	"errors"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

type configLoader interface {
	LoadSharedConfigProfile(ctx context.Context, profile string, optFns ...func(*config.LoadSharedConfigOptions)) (config.SharedConfig, error)
	LoadDefaultConfig(ctx context.Context, optFns ...func(*config.LoadOptions) error) (awsv2.Config, error)
}

type defaultConfigLoader struct{}

func (defaultConfigLoader) LoadSharedConfigProfile(ctx context.Context, profile string, optFns ...func(*config.LoadSharedConfigOptions)) (config.SharedConfig, error) {
	return config.LoadSharedConfigProfile(ctx, profile, optFns...)
}

func (defaultConfigLoader) LoadDefaultConfig(ctx context.Context, optFns ...func(*config.LoadOptions) error) (awsv2.Config, error) {
	return config.LoadDefaultConfig(ctx, optFns...)
}

// SDKService resolves credentials from the shared AWS config and credentials files.
type SDKService struct {
	loader configLoader
	env    func() (config.EnvConfig, error)
}

// NewService creates a credential resolver that uses AWS SDK v2.
func NewService() *SDKService {
	return newSDKService(defaultConfigLoader{}, config.NewEnvConfig)
}

func newSDKService(loader configLoader, env func() (config.EnvConfig, error)) *SDKService {
	return &SDKService{
		loader: loader,
		env:    env,
	}
}

// ResolveCredentials loads the named profile. Only local files are read here; any
// role assumption configured for the profile happens later, on Retrieve.
func (s *SDKService) ResolveCredentials(ctx context.Context, profile string) (awsv2.CredentialsProvider, error) {
	envCfg, err := s.env()
	if err != nil {
		return nil, &ConfigurationError{
			Profile: profile,
			Path:    config.DefaultSharedCredentialsFilename(),
			Err:     fmt.Errorf("failed to read AWS environment: %w", err),
		}
	}
	path := credentialsPath(envCfg)

	if profile == "" {
		return nil, &ConfigurationError{Profile: profile, Path: path, Err: errors.New("profile name is empty")}
	}

	if _, err := s.loader.LoadSharedConfigProfile(ctx, profile, func(o *config.LoadSharedConfigOptions) {
		if envCfg.SharedCredentialsFile != "" {
			o.CredentialsFiles = []string{envCfg.SharedCredentialsFile}
		}
		if envCfg.SharedConfigFile != "" {
			o.ConfigFiles = []string{envCfg.SharedConfigFile}
		}
	}); err != nil {
		return nil, &ConfigurationError{Profile: profile, Path: path, Err: err}
	}

	cfg, err := s.loader.LoadDefaultConfig(ctx, config.WithSharedConfigProfile(profile))
	if err != nil {
		return nil, &ConfigurationError{
			Profile: profile,
			Path:    path,
			Err:     fmt.Errorf("failed to load AWS config: %w", err),
		}
	}

	if cfg.Credentials == nil {
		return nil, &ConfigurationError{Profile: profile, Path: path, Err: errors.New("profile has no credentials")}
	}

	return cfg.Credentials, nil
}

func credentialsPath(envCfg config.EnvConfig) string {
	if envCfg.SharedCredentialsFile != "" {
		return envCfg.SharedCredentialsFile
	}
	return config.DefaultSharedCredentialsFilename()
}

// IsProfileNotFound reports whether err means the profile does not exist.
func IsProfileNotFound(err error) bool {
	var notExist config.SharedConfigProfileNotExistError
	return errors.As(err, &notExist)
}
