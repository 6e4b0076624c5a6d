package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/afp-cli/afp-cli/internal/cli"
	"github.com/afp-cli/afp-cli/internal/client"
	log "github.com/sirupsen/logrus"
)

// OutputMode selects how fetched credentials are handed to the user.
type OutputMode int

const (
	// OutputSubshell starts a shell with the credentials in its environment.
	OutputSubshell OutputMode = iota
	// OutputShow prints the credentials in a human-readable table.
	OutputShow
	// OutputExport prints shell export statements.
	OutputExport
	// OutputWrite stores the credentials in the AWS credentials file.
	OutputWrite
)

// CredentialsAPI is the part of the AFP client used by the command flows.
type CredentialsAPI interface {
	cli.AccountRoleLister
	GetAWSCredentials(ctx context.Context, account, role string) (*client.Credentials, error)
}

// AssumeRoleOptions configure DoAssumeRole.
type AssumeRoleOptions struct {
	Account string
	// Role defaults to the first role of Account when empty.
	Role string
	Mode OutputMode
	// Profile is the credentials file section used by OutputWrite.
	Profile string
	// CredentialsFile overrides the default AWS credentials file location.
	CredentialsFile string

	Stdout io.Writer
	Now    func() time.Time
	Sink   cli.ErrorSink
	Runner cli.CommandRunner
}

// DoAssumeRole fetches credentials for the selected account and role and
// hands them to the user according to opts.Mode.
//
// Parameters:
//   - ctx: Controls cancellation of the API calls
//   - api: The AFP API client
//   - opts: Account, role and output selection
func DoAssumeRole(ctx context.Context, api CredentialsAPI, opts *AssumeRoleOptions) error {
	if opts == nil || opts.Account == "" {
		return fmt.Errorf("an account name is required")
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	role := opts.Role
	if role == "" {
		selected, err := cli.SelectFirstRole(ctx, api, opts.Account, opts.Sink)
		if err != nil {
			return err
		}
		log.Debugf("no role given, using first role %s of account %s", selected, opts.Account)
		role = selected
	}

	creds, err := api.GetAWSCredentials(ctx, opts.Account, role)
	if err != nil {
		return fmt.Errorf("failed to get credentials for %s/%s: %s: %w", opts.Account, role, client.GetUserFriendlyMessage(err), err)
	}

	vars := cli.Environment(opts.Account, role, creds, now().UTC())
	switch opts.Mode {
	case OutputShow:
		return cli.WriteShow(stdout, vars)
	case OutputExport:
		return cli.WriteExport(stdout, vars)
	case OutputWrite:
		path := opts.CredentialsFile
		if path == "" {
			if path, err = cli.DefaultCredentialsFile(); err != nil {
				return err
			}
		}
		if err = cli.WriteCredentialsFile(path, opts.Profile, creds); err != nil {
			return err
		}
		profile := opts.Profile
		if profile == "" {
			profile = cli.DefaultProfile
		}
		_, _ = fmt.Fprintf(stdout, "Wrote credentials for profile %s to %s\n", profile, path)
		return nil
	default:
		_, _ = fmt.Fprintf(stdout, "Entering AFP subshell for account %s, role %s.\n", opts.Account, role)
		if err = cli.StartSubshell(vars, opts.Runner); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, "Left AFP subshell.")
		return nil
	}
}

// DoListAccounts prints every account available to the user with its roles.
func DoListAccounts(ctx context.Context, api cli.AccountRoleLister, stdout io.Writer) error {
	if stdout == nil {
		stdout = os.Stdout
	}
	accounts, err := api.GetAccountAndRoleList(ctx)
	if err != nil {
		return fmt.Errorf("failed to get the account and role list: %s: %w", client.GetUserFriendlyMessage(err), err)
	}
	return cli.WriteAccountList(stdout, accounts)
}
