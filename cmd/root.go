package cmd

import (
	"context"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	awslib "github.com/eculver/aws-idp-token/pkg/aws"
	"github.com/eculver/aws-idp-token/pkg/config"
	"github.com/eculver/aws-idp-token/pkg/token"
)

type runDeps struct {
	credentials  awslib.CredentialResolver
	signer       awslib.AssertionSigner
	newExchanger func(opts token.Options, logger logr.Logger) token.Exchanger
	loadSettings func(path string) (config.Settings, error)
	newLogger    func(w io.Writer) logr.Logger
	logger       logr.Logger
	stdout       io.Writer
	stderr       io.Writer
}

type workflowRunner func(ctx context.Context, inv invocation, deps runDeps) error

// NewRootCmd creates the root CLI command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultRunDeps(), runWorkflow)
}

func newRootCmd(deps runDeps, runner workflowRunner) *cobra.Command {
	var (
		tokenOnly  bool
		signOnly   bool
		verbose    bool
		region     string
		configPath string
	)

	rootCmd := &cobra.Command{
		Use:   "idp-token <profile-name> <audience> [scope]",
		Short: "Exchange AWS credentials for a service-to-service bearer token",
		Long: `Signs an sts:GetCallerIdentity request with the credentials of the given AWS
profile and presents it as the client secret of an OAuth2 client-credentials
request to the internal token service. No shared secret is ever distributed.

The scope defaults to "` + token.DefaultScope + `" and is sent as given.`,
		Example: `  idp-token rambo sec-acl-api-svc
  idp-token doc-metadata-api-svc doc-metadata-api-svc service.read.permissions
  TOKEN=$(idp-token -t rambo sec-acl-api-svc)`,
		Args:         cobra.RangeArgs(2, 3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := deps
			if verbose {
				d.logger = deps.newLogger(deps.stderr)
			}

			mode := modeDiagnostic
			if tokenOnly {
				mode = modeTokenOnly
			}

			inv, err := newInvocation(args, mode, signOnly, configPath, d)
			if err == nil {
				if cmd.Flags().Changed("region") {
					inv.region = region
				}
				err = runner(context.Background(), inv, d)
			}
			if err != nil {
				cmd.SilenceErrors = true
				reportError(d.stderr, err, mode)
				return err
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVarP(&tokenOnly, "token-only", "t", false, "Print only the access token, for use in scripts")
	rootCmd.Flags().BoolVar(&signOnly, "sign-only", false, "Stop after signing and print the client secret and a curl command instead of exchanging it")
	rootCmd.Flags().StringVarP(&region, "region", "r", config.DefaultRegion, "AWS region the identity request is signed for")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Settings file with the token endpoint configuration")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.SetOut(deps.stdout)
	rootCmd.SetErr(deps.stderr)

	return rootCmd
}

func newInvocation(args []string, mode outputMode, signOnly bool, configPath string, deps runDeps) (invocation, error) {
	settings, err := deps.loadSettings(configPath)
	if err != nil {
		return invocation{}, &stageError{stage: stageLoadSettings, err: err}
	}
	deps.logger.V(1).Info("settings loaded", "path", configPath, "endpoint", settings.Endpoint, "insecureSkipVerify", settings.InsecureSkipVerify)

	inv := invocation{
		profile:  args[0],
		audience: args[1],
		region:   settings.Region,
		mode:     mode,
		signOnly: signOnly,
		exchange: settings.TokenOptions(),
	}
	if len(args) > 2 {
		inv.scope = args[2]
	}
	return inv, nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func defaultRunDeps() runDeps {
	return runDeps{
		credentials: awslib.NewService(),
		signer:      awslib.NewIdentitySigner(),
		newExchanger: func(opts token.Options, logger logr.Logger) token.Exchanger {
			return token.NewClient(opts, logger)
		},
		loadSettings: config.Load,
		newLogger:    newLogger,
		logger:       logr.Discard(),
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}
