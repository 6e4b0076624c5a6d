package cmd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/afp-cli/afp-cli/internal/cli"
	"github.com/afp-cli/afp-cli/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

type fakeAPI struct {
	accounts  map[string][]string
	listErr   error
	credsErr  error
	requested []string
}

func (f *fakeAPI) GetAccountAndRoleList(context.Context) (map[string][]string, error) {
	return f.accounts, f.listErr
}

func (f *fakeAPI) GetAWSCredentials(_ context.Context, account, role string) (*client.Credentials, error) {
	f.requested = append(f.requested, account+"/"+role)
	if f.credsErr != nil {
		return nil, f.credsErr
	}
	return &client.Credentials{
		AccessKeyID:     "AKID-" + role,
		SecretAccessKey: "SECRET",
		SessionToken:    "TOKEN",
		Expiration:      "1970-01-01T00:30:00Z",
	}, nil
}

func epoch() time.Time { return time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestDoAssumeRole_ExportUsesFirstRole(t *testing.T) {
	api := &fakeAPI{accounts: map[string][]string{"ACCOUNT1": {"ROLE1", "ROLE2"}}}
	var out bytes.Buffer

	err := DoAssumeRole(context.Background(), api, &AssumeRoleOptions{
		Account: "ACCOUNT1",
		Mode:    OutputExport,
		Stdout:  &out,
		Now:     epoch,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ACCOUNT1/ROLE1"}, api.requested)
	assert.Contains(t, out.String(), "export AWS_ACCESS_KEY_ID='AKID-ROLE1'\n")
	assert.Contains(t, out.String(), "export AWS_VALID_SECONDS='1800'\n")
}

func TestDoAssumeRole_ExplicitRoleSkipsLookup(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("must not be called")}
	var out bytes.Buffer

	err := DoAssumeRole(context.Background(), api, &AssumeRoleOptions{
		Account: "ACCOUNT1",
		Role:    "ROLE2",
		Mode:    OutputShow,
		Stdout:  &out,
		Now:     epoch,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ACCOUNT1/ROLE2"}, api.requested)
	assert.Contains(t, out.String(), "AKID-ROLE2")
}

func TestDoAssumeRole_RoleLookupFailureReportedOnce(t *testing.T) {
	api := &fakeAPI{accounts: map[string][]string{"ACCOUNT1": {}}}
	var reported []string

	err := DoAssumeRole(context.Background(), api, &AssumeRoleOptions{
		Account: "ACCOUNT1",
		Mode:    OutputExport,
		Stdout:  &bytes.Buffer{},
		Sink:    func(message string) { reported = append(reported, message) },
	})
	require.Error(t, err)
	assert.True(t, cli.IsRoleLookupError(err))
	assert.Len(t, reported, 1)
	assert.Empty(t, api.requested)
}

func TestDoAssumeRole_CredentialsFailure(t *testing.T) {
	api := &fakeAPI{credsErr: client.NewAPICallError(client.ErrForbidden, 0, nil)}

	err := DoAssumeRole(context.Background(), api, &AssumeRoleOptions{Account: "ACCOUNT1", Role: "ROLE1", Stdout: &bytes.Buffer{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrForbidden)
	assert.Contains(t, err.Error(), "ACCOUNT1/ROLE1")
}

func TestDoAssumeRole_Write(t *testing.T) {
	api := &fakeAPI{}
	path := filepath.Join(t.TempDir(), "credentials")
	var out bytes.Buffer

	err := DoAssumeRole(context.Background(), api, &AssumeRoleOptions{
		Account:         "ACCOUNT1",
		Role:            "ROLE1",
		Mode:            OutputWrite,
		Profile:         "afp",
		CredentialsFile: path,
		Stdout:          &out,
	})
	require.NoError(t, err)

	file, err := ini.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "AKID-ROLE1", file.Section("afp").Key("aws_access_key_id").String())
	assert.Contains(t, out.String(), "profile afp")
}

func TestDoAssumeRole_Subshell(t *testing.T) {
	api := &fakeAPI{}
	var env []string
	var out bytes.Buffer

	err := DoAssumeRole(context.Background(), api, &AssumeRoleOptions{
		Account: "ACCOUNT1",
		Role:    "ROLE1",
		Stdout:  &out,
		Now:     epoch,
		Runner: func(cmd *exec.Cmd) error {
			env = cmd.Env
			return nil
		},
	})
	require.NoError(t, err)
	assert.Contains(t, env, "AFP_ROLE=ROLE1")
	assert.Contains(t, env, "AWS_VALID_SECONDS=1800")
	assert.True(t, strings.HasPrefix(out.String(), "Entering AFP subshell"))
}

func TestDoAssumeRole_RequiresAccount(t *testing.T) {
	assert.Error(t, DoAssumeRole(context.Background(), &fakeAPI{}, &AssumeRoleOptions{}))
	assert.Error(t, DoAssumeRole(context.Background(), &fakeAPI{}, nil))
}

func TestDoListAccounts(t *testing.T) {
	api := &fakeAPI{accounts: map[string][]string{"B": {"R3"}, "A": {"R1", "R2"}}}
	var out bytes.Buffer

	require.NoError(t, DoListAccounts(context.Background(), api, &out))
	assert.Equal(t, "A   R1,R2\nB   R3\n", out.String())

	api.listErr = client.NewAPICallError(client.ErrUnauthorized, 0, nil)
	err := DoListAccounts(context.Background(), api, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}
