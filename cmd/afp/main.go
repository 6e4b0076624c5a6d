// Package main provides the entry point for the afp command line tool.
// It obtains temporary AWS credentials from an AWS Federation Proxy and
// hands them to the user as a subshell, shell exports or a credentials file.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/afp-cli/afp-cli/internal/cli"
	"github.com/afp-cli/afp-cli/internal/cmd"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var (
	// Version is the release version, set with -ldflags at build time.
	Version = "dev"
	// Commit is the source revision, set with -ldflags at build time.
	Commit = "none"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.NewRootCommand(cmd.Dependencies{Version: Version + " (" + Commit + ")"})
	if err := root.ExecuteContext(ctx); err != nil {
		// Role lookup failures were already reported to the user.
		if !cli.IsRoleLookupError(err) {
			log.Error(err)
		}
		stop()
		os.Exit(1)
	}
}
