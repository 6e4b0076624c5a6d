// Package cmd wires configuration, password providers and the AFP client into
// the afp command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/afp-cli/afp-cli/internal/cli"
	"github.com/afp-cli/afp-cli/internal/client"
	"github.com/afp-cli/afp-cli/internal/config"
	"github.com/afp-cli/afp-cli/internal/logging"
	"github.com/afp-cli/afp-cli/internal/password"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Dependencies are the process-level collaborators of the root command.
// Zero values select the production implementations.
type Dependencies struct {
	Version          string
	ConfigSources    *config.Sources
	Stdout           io.Writer
	Stderr           io.Writer
	PasswordProvider func(name string) (password.Provider, error)
	Resolver         config.Resolver
	Runner           cli.CommandRunner
	CredentialsFile  string
	Now              func() time.Time
}

type rootFlags struct {
	debug            bool
	user             string
	apiURL           string
	passwordProvider string
	show             bool
	export           bool
	write            bool
	profile          string
}

// NewRootCommand builds the afp command:
//
//	afp [flags]                   list accounts and roles
//	afp [flags] ACCOUNT [ROLE]    fetch credentials (ROLE defaults to the first role)
func NewRootCommand(deps Dependencies) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "afp [flags] [ACCOUNT [ROLE]]",
		Short:         "Obtain temporary AWS credentials from the AWS Federation Proxy",
		Version:       deps.Version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return run(c, args, flags, deps)
		},
	}

	fs := root.Flags()
	fs.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	fs.StringVarP(&flags.user, "user", "u", "", "user name for the AFP API (default $USER)")
	fs.StringVarP(&flags.apiURL, "api-url", "a", "", "AFP API base URL")
	fs.StringVarP(&flags.passwordProvider, "password-provider", "p", "", "password provider: prompt, keyring or env")
	fs.BoolVar(&flags.show, "show", false, "print the credentials instead of starting a subshell")
	fs.BoolVar(&flags.export, "export", false, "print shell export statements")
	fs.BoolVar(&flags.write, "write", false, "write the credentials to the AWS credentials file")
	fs.StringVar(&flags.profile, "profile", cli.DefaultProfile, "credentials file profile used with --write")
	root.MarkFlagsMutuallyExclusive("show", "export", "write")

	return root
}

func run(c *cobra.Command, args []string, flags *rootFlags, deps Dependencies) error {
	ctx := c.Context()
	if c.Flags().Changed("profile") && !flags.write {
		return fmt.Errorf("--profile can only be used together with --write")
	}
	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	sources := config.DefaultSources()
	if deps.ConfigSources != nil {
		sources = *deps.ConfigSources
	}
	cfg, err := config.LoadConfig(sources)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, c.Flags(), flags)

	closer, err := logging.Setup(logging.Options{Debug: cfg.Debug, LogFile: cfg.LogFile, Output: deps.Stderr})
	if err != nil {
		return err
	}
	defer func() {
		if errClose := closer.Close(); errClose != nil {
			log.Errorf("close log file: %v", errClose)
		}
	}()

	if cfg.APIURL == "" {
		if cfg.APIURL, err = config.DiscoverAPIURL(ctx, deps.Resolver); err != nil {
			return err
		}
	}

	newProvider := deps.PasswordProvider
	if newProvider == nil {
		newProvider = password.NewProvider
	}
	provider, err := newProvider(cfg.PasswordProvider)
	if err != nil {
		return err
	}
	pw, err := provider.GetPassword(cfg.User)
	if err != nil {
		return err
	}

	api := client.NewClient(cfg, pw)
	log.Debugf("using AFP API %s as %s", api.APIURL(), cfg.User)

	if len(args) == 0 {
		return DoListAccounts(ctx, api, stdout)
	}

	opts := &AssumeRoleOptions{
		Account:         args[0],
		Mode:            outputMode(flags),
		Profile:         flags.profile,
		CredentialsFile: deps.CredentialsFile,
		Stdout:          stdout,
		Now:             deps.Now,
		Runner:          deps.Runner,
	}
	if len(args) > 1 {
		opts.Role = args[1]
	}
	return DoAssumeRole(ctx, api, opts)
}

func applyFlagOverrides(cfg *config.Config, fs *pflag.FlagSet, flags *rootFlags) {
	if fs.Changed("user") {
		cfg.User = flags.user
	}
	if fs.Changed("api-url") {
		cfg.APIURL = flags.apiURL
	}
	if fs.Changed("password-provider") {
		cfg.PasswordProvider = flags.passwordProvider
	}
	if flags.debug {
		cfg.Debug = true
	}
}

func outputMode(flags *rootFlags) OutputMode {
	switch {
	case flags.show:
		return OutputShow
	case flags.export:
		return OutputExport
	case flags.write:
		return OutputWrite
	default:
		return OutputSubshell
	}
}
