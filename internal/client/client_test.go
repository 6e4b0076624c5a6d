package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/afp-cli/afp-cli/internal/afptest"
	"github.com/afp-cli/afp-cli/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(apiURL, user, password string) *Client {
	return NewClient(&config.Config{APIURL: apiURL, User: user, Timeout: 5}, password)
}

func TestGetAccountAndRoleList(t *testing.T) {
	srv := &afptest.Server{
		User:     "alice",
		Password: "secret",
		Accounts: map[string][]string{
			"ACCOUNT1": {"ROLE2", "ROLE1"},
			"ACCOUNT2": {},
		},
	}
	apiURL := srv.Start(t)

	accounts, err := newTestClient(apiURL+"/", "alice", "secret").GetAccountAndRoleList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE2", "ROLE1"}, accounts["ACCOUNT1"])
	assert.Empty(t, accounts["ACCOUNT2"])
	assert.Len(t, accounts, 2)
}

func TestGetAccountAndRoleList_WrongPassword(t *testing.T) {
	srv := &afptest.Server{User: "alice", Password: "secret", Accounts: map[string][]string{}}
	apiURL := srv.Start(t)

	_, err := newTestClient(apiURL, "alice", "wrong").GetAccountAndRoleList(context.Background())
	require.Error(t, err)
	assert.True(t, IsAPICallError(err))
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APICallError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestGetAccountAndRoleList_ServerError(t *testing.T) {
	srv := &afptest.Server{User: "alice", Password: "secret", AccountStatus: http.StatusBadGateway}
	apiURL := srv.Start(t)

	_, err := newTestClient(apiURL, "alice", "secret").GetAccountAndRoleList(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Equal(t, "The AFP API call failed with status 502.", GetUserFriendlyMessage(err))
}

func TestGetAccountAndRoleList_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Not an object", body: `["ACCOUNT1"]`},
		{name: "Roles not a list", body: `{"ACCOUNT1": "ROLE1"}`},
		{name: "Role not a string", body: `{"ACCOUNT1": ["ROLE1", 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(upstream.Close)

			_, err := newTestClient(upstream.URL, "alice", "secret").GetAccountAndRoleList(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidResponse), "got %v", err)
		})
	}
}

func TestGetAccountAndRoleList_Unreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	apiURL := upstream.URL
	upstream.Close()

	_, err := newTestClient(apiURL, "alice", "secret").GetAccountAndRoleList(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestFailed))
}

func TestGetAccountAndRoleList_NoAPIURL(t *testing.T) {
	_, err := newTestClient("", "alice", "secret").GetAccountAndRoleList(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestFailed))
}

func TestGetAWSCredentials(t *testing.T) {
	srv := &afptest.Server{
		User:     "alice",
		Password: "secret",
		Credentials: map[string]gin.H{
			"ACCOUNT1/ROLE1": {
				"AccessKeyId":     "AKIDEXAMPLE",
				"SecretAccessKey": "SECRET",
				"Token":           "TOKEN",
				"Expiration":      "1970-01-01T01:00:00Z",
			},
		},
	}
	apiURL := srv.Start(t)
	c := newTestClient(apiURL, "alice", "secret")

	creds, err := c.GetAWSCredentials(context.Background(), "ACCOUNT1", "ROLE1")
	require.NoError(t, err)
	assert.Equal(t, &Credentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "SECRET",
		SessionToken:    "TOKEN",
		Expiration:      "1970-01-01T01:00:00Z",
	}, creds)

	_, err = c.GetAWSCredentials(context.Background(), "ACCOUNT1", "ROLE2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestGetAWSCredentials_MissingKeys(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"AccessKeyId": "AKID"}`))
	}))
	t.Cleanup(upstream.Close)

	_, err := newTestClient(upstream.URL, "alice", "secret").GetAWSCredentials(context.Background(), "A", "R")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestGetUserFriendlyMessage(t *testing.T) {
	assert.Contains(t, GetUserFriendlyMessage(NewAPICallError(ErrUnauthorized, 0, nil)), "Authentication failed")
	assert.Equal(t, "An unexpected error occurred. Please try again.", GetUserFriendlyMessage(errors.New("boom")))
}
