// Package client talks to the AWS Federation Proxy (AFP) API. It lists the
// accounts and roles available to a user and fetches temporary credentials
// for an account/role pair.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/afp-cli/afp-cli/internal/config"
	"github.com/afp-cli/afp-cli/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const userAgent = "afp-cli"

// Credentials are temporary AWS credentials issued by the AFP API.
type Credentials struct {
	// AccessKeyID is the AWS access key id.
	AccessKeyID string `json:"AccessKeyId"`
	// SecretAccessKey is the AWS secret access key.
	SecretAccessKey string `json:"SecretAccessKey"`
	// SessionToken is the AWS session token.
	SessionToken string `json:"Token"`
	// Expiration is the expiry timestamp exactly as returned by the API (YYYY-MM-DDTHH:MM:SSZ).
	Expiration string `json:"Expiration"`
}

// Client is an AFP API client using HTTP basic authentication.
type Client struct {
	httpClient *http.Client
	apiURL     string
	user       string
	password   string
}

// NewClient creates a client for the configured API URL and user.
// It initializes an HTTP client with timeout and proxy settings from cfg.
func NewClient(cfg *config.Config, password string) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultTimeoutSeconds * time.Second
	}
	return &Client{
		httpClient: util.SetProxy(cfg.ProxyURL, &http.Client{Timeout: timeout}),
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		user:       cfg.User,
		password:   password,
	}
}

// APIURL returns the base URL the client talks to.
func (c *Client) APIURL() string {
	return c.apiURL
}

// GetAccountAndRoleList returns every account the user may access, mapped to
// its roles in the order the API lists them.
func (c *Client) GetAccountAndRoleList(ctx context.Context) (map[string][]string, error) {
	body, err := c.get(ctx, c.apiURL+"/account")
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, NewAPICallError(ErrInvalidResponse, 0, fmt.Errorf("account list is not a JSON object"))
	}

	accounts := make(map[string][]string)
	var parseErr error
	parsed.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			parseErr = fmt.Errorf("roles of account %q are not a list", key.String())
			return false
		}
		roles := make([]string, 0, len(value.Array()))
		for _, role := range value.Array() {
			if role.Type != gjson.String {
				parseErr = fmt.Errorf("role %s of account %q is not a string", role.Raw, key.String())
				return false
			}
			roles = append(roles, role.String())
		}
		accounts[key.String()] = roles
		return true
	})
	if parseErr != nil {
		return nil, NewAPICallError(ErrInvalidResponse, 0, parseErr)
	}
	return accounts, nil
}

// GetAWSCredentials fetches temporary credentials for role in account.
func (c *Client) GetAWSCredentials(ctx context.Context, account, role string) (*Credentials, error) {
	endpoint := fmt.Sprintf("%s/account/%s/%s", c.apiURL, url.PathEscape(account), url.PathEscape(role))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, NewAPICallError(ErrInvalidResponse, 0, fmt.Errorf("credentials response is not valid JSON"))
	}
	fields := gjson.GetManyBytes(body, "AccessKeyId", "SecretAccessKey", "Token", "Expiration")
	creds := &Credentials{
		AccessKeyID:     fields[0].String(),
		SecretAccessKey: fields[1].String(),
		SessionToken:    fields[2].String(),
		Expiration:      fields[3].String(),
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" || creds.SessionToken == "" {
		return nil, NewAPICallError(ErrInvalidResponse, 0, fmt.Errorf("credentials response is missing keys"))
	}
	return creds, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if c.apiURL == "" {
		return nil, NewAPICallError(ErrRequestFailed, 0, fmt.Errorf("no api url configured"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewAPICallError(ErrRequestFailed, 0, err)
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	log.Debugf("afp api: GET %s as %s", endpoint, c.user)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewAPICallError(ErrRequestFailed, 0, err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("afp api: close body error: %v", errClose)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewAPICallError(ErrRequestFailed, resp.StatusCode, err)
	}

	if !isHTTPSuccess(resp.StatusCode) {
		return nil, errorForStatus(resp.StatusCode, bodyBytes)
	}
	return bodyBytes, nil
}

// isHTTPSuccess checks if the status code indicates success (2xx).
func isHTTPSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
