package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/afp-cli/afp-cli/internal/client"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// DefaultProfile is the credentials file section written when no profile is given.
const DefaultProfile = "default"

// EnvVar is a single environment variable handed to the user.
type EnvVar struct {
	Name  string
	Value string
}

// Environment returns the variables describing creds for account and role, in a stable order.
func Environment(account, role string, creds *client.Credentials, now time.Time) []EnvVar {
	return []EnvVar{
		{Name: "AWS_ACCESS_KEY_ID", Value: creds.AccessKeyID},
		{Name: "AWS_SECRET_ACCESS_KEY", Value: creds.SecretAccessKey},
		{Name: "AWS_SESSION_TOKEN", Value: creds.SessionToken},
		{Name: "AWS_SECURITY_TOKEN", Value: creds.SessionToken},
		{Name: "AWS_EXPIRATION_DATE", Value: creds.Expiration},
		{Name: "AWS_VALID_SECONDS", Value: strconv.Itoa(ValidSeconds(creds.Expiration, now))},
		{Name: "AFP_ACCOUNT", Value: account},
		{Name: "AFP_ROLE", Value: role},
	}
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// WriteExport writes one "export NAME='value'" line per variable.
func WriteExport(w io.Writer, vars []EnvVar) error {
	for _, v := range vars {
		if _, err := fmt.Fprintf(w, "export %s=%s\n", v.Name, shellQuote(v.Value)); err != nil {
			return err
		}
	}
	return nil
}

// WriteShow writes the variables in a human-readable table.
func WriteShow(w io.Writer, vars []EnvVar) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range vars {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", v.Name, v.Value)
	}
	return tw.Flush()
}

// WriteAccountList writes every account with its comma separated roles, accounts sorted.
func WriteAccountList(w io.Writer, accounts map[string][]string) error {
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 3, ' ', 0)
	for _, name := range names {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", name, strings.Join(accounts[name], ","))
	}
	return tw.Flush()
}

// DefaultCredentialsFile returns ~/.aws/credentials, honouring AWS_SHARED_CREDENTIALS_FILE.
func DefaultCredentialsFile() (string, error) {
	if path := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".aws", "credentials"), nil
}

// WriteCredentialsFile stores creds in section profile of the INI file at path.
// Other sections and keys are preserved.
func WriteCredentialsFile(path, profile string, creds *client.Credentials) error {
	if profile == "" {
		profile = DefaultProfile
	}
	file, err := ini.LooseLoad(path)
	if err != nil {
		return fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	section := file.Section(profile)
	section.Key("aws_access_key_id").SetValue(creds.AccessKeyID)
	section.Key("aws_secret_access_key").SetValue(creds.SecretAccessKey)
	section.Key("aws_session_token").SetValue(creds.SessionToken)
	section.Key("aws_security_token").SetValue(creds.SessionToken)

	var buf bytes.Buffer
	if _, err = file.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode credentials file: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err = os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	log.Debugf("wrote credentials for profile %s to %s", profile, path)
	return nil
}

// CommandRunner runs a prepared command.
type CommandRunner func(cmd *exec.Cmd) error

// StartSubshell runs the user's $SHELL (or /bin/sh) with vars added to the
// current environment and waits for it to exit.
func StartSubshell(vars []EnvVar, run CommandRunner) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	if run == nil {
		run = func(cmd *exec.Cmd) error { return cmd.Run() }
	}

	cmd := exec.Command(shell)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	for _, v := range vars {
		cmd.Env = append(cmd.Env, v.Name+"="+v.Value)
	}

	log.Debugf("starting subshell %s", shell)
	if err := run(cmd); err != nil {
		return fmt.Errorf("subshell %s failed: %w", shell, err)
	}
	return nil
}
