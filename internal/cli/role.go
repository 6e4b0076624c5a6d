package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/afp-cli/afp-cli/internal/client"
	log "github.com/sirupsen/logrus"
)

// AccountRoleLister returns every account mapped to its roles.
type AccountRoleLister interface {
	GetAccountAndRoleList(ctx context.Context) (map[string][]string, error)
}

// ErrorSink receives user-facing error messages.
type ErrorSink func(message string)

// LogErrorSink reports messages through the error level of the standard logger.
func LogErrorSink(message string) {
	log.Error(message)
}

// LookupReason says why a default role could not be selected.
type LookupReason string

const (
	// ReasonAPIFailure means the account and role list could not be fetched.
	ReasonAPIFailure LookupReason = "api_failure"
	// ReasonUnknownAccount means the account is not in the list.
	ReasonUnknownAccount LookupReason = "unknown_account"
	// ReasonNoRoles means the account has no roles.
	ReasonNoRoles LookupReason = "no_roles"
)

// RoleLookupError is returned when no default role can be selected.
type RoleLookupError struct {
	Reason  LookupReason
	Account string
	Message string
	Cause   error
}

// Error returns the user-facing message.
func (e *RoleLookupError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause of the error.
func (e *RoleLookupError) Unwrap() error {
	return e.Cause
}

// IsRoleLookupError checks if an error is a role lookup error.
func IsRoleLookupError(err error) bool {
	var lookupErr *RoleLookupError
	return errors.As(err, &lookupErr)
}

// SelectFirstRole returns the first role listed for account. Every failure is
// reported to sink exactly once and returned as a *RoleLookupError.
func SelectFirstRole(ctx context.Context, lister AccountRoleLister, account string, sink ErrorSink) (string, error) {
	if sink == nil {
		sink = LogErrorSink
	}
	fail := func(reason LookupReason, message string, cause error) (string, error) {
		sink(message)
		return "", &RoleLookupError{Reason: reason, Account: account, Message: message, Cause: cause}
	}

	accounts, err := lister.GetAccountAndRoleList(ctx)
	if err != nil {
		return fail(ReasonAPIFailure, fmt.Sprintf("Failed to get the account and role list: %s", client.GetUserFriendlyMessage(err)), err)
	}

	roles, ok := accounts[account]
	if !ok {
		return fail(ReasonUnknownAccount, fmt.Sprintf("Account %q not found in the AFP account list", account), nil)
	}
	if len(roles) == 0 {
		return fail(ReasonNoRoles, fmt.Sprintf("No roles available for account %q", account), nil)
	}
	return roles[0], nil
}
