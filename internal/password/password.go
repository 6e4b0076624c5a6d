// Package password obtains the AFP API password from one of several providers.
package password

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

// KeyringService is the service name passwords are stored under in the OS keyring.
const KeyringService = "afp"

// EnvPassword is read by the env provider.
const EnvPassword = "AFP_PASSWORD"

// ErrEmptyPassword is returned when a provider yields an empty password.
var ErrEmptyPassword = errors.New("password is empty")

// Provider returns the password for user.
type Provider interface {
	GetPassword(user string) (string, error)
}

// Keyring is the subset of the OS keyring used by the keyring provider.
type Keyring interface {
	Get(service, user string) (string, error)
	Set(service, user, password string) error
}

// Prompter reads a password without echo.
type Prompter struct {
	// Out receives the prompt text.
	Out io.Writer
	// ReadPassword reads a line without echo. Defaults to term.ReadPassword on stdin.
	ReadPassword func() ([]byte, error)
}

// GetPassword prompts for the password of user.
func (p *Prompter) GetPassword(user string) (string, error) {
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	read := p.ReadPassword
	if read == nil {
		read = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }
	}

	_, _ = fmt.Fprintf(out, "Password for %s: ", user)
	raw, err := read()
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(string(raw), "\r\n")
	if password == "" {
		return "", ErrEmptyPassword
	}
	return password, nil
}

// KeyringProvider reads the password from the OS keyring. When no password is
// stored it falls back to Fallback and stores the result.
type KeyringProvider struct {
	Keyring  Keyring
	Fallback Provider
}

// GetPassword returns the stored password for user, prompting once if missing.
func (k *KeyringProvider) GetPassword(user string) (string, error) {
	stored, err := k.Keyring.Get(KeyringService, user)
	if err == nil && stored != "" {
		return stored, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		log.Warnf("keyring lookup failed, falling back to prompt: %v", err)
	}

	password, err := k.Fallback.GetPassword(user)
	if err != nil {
		return "", err
	}
	if errSet := k.Keyring.Set(KeyringService, user, password); errSet != nil {
		log.Warnf("failed to store password in keyring: %v", errSet)
	}
	return password, nil
}

// EnvProvider reads the password from the AFP_PASSWORD environment variable.
type EnvProvider struct{}

// GetPassword returns $AFP_PASSWORD.
func (EnvProvider) GetPassword(string) (string, error) {
	password := os.Getenv(EnvPassword)
	if password == "" {
		return "", fmt.Errorf("%s: %w", EnvPassword, ErrEmptyPassword)
	}
	return password, nil
}

type osKeyring struct{}

func (osKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (osKeyring) Set(service, user, password string) error { return keyring.Set(service, user, password) }

// NewProvider returns the provider registered under name.
func NewProvider(name string) (Provider, error) {
	prompt := &Prompter{}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "prompt":
		return prompt, nil
	case "keyring":
		return &KeyringProvider{Keyring: osKeyring{}, Fallback: prompt}, nil
	case "env":
		return EnvProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown password provider %q (expected prompt, keyring or env)", name)
	}
}
