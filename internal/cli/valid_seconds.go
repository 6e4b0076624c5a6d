// Package cli implements the building blocks of the afp command: session
// lifetime computation, default role selection and the credential outputs.
package cli

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// ExpirationLayout is the timestamp format used by the AFP API for credential expiry.
const ExpirationLayout = "2006-01-02T15:04:05Z"

// FallbackValidSeconds is reported when the expiry timestamp cannot be parsed.
const FallbackValidSeconds = 3600

// ValidSeconds returns the whole seconds from now until expiry. The result is
// negative when expiry lies in the past. An unparseable expiry is logged and
// FallbackValidSeconds is returned.
func ValidSeconds(expiry string, now time.Time) int {
	expiresAt, err := time.Parse(ExpirationLayout, expiry)
	if err == nil && len(expiry) != len(ExpirationLayout) {
		// time.Parse accepts fractional seconds the layout does not name.
		err = fmt.Errorf("expected layout %s", ExpirationLayout)
	}
	if err != nil {
		log.Warnf("could not parse expiration date %q, assuming %d seconds: %v", expiry, FallbackValidSeconds, err)
		return FallbackValidSeconds
	}
	// Whole-second arithmetic; time.Duration saturates beyond ~292 years.
	secs := expiresAt.Unix() - now.Unix()
	if now.Nanosecond() > 0 && secs > 0 {
		secs--
	}
	return int(secs)
}
