package config

import (
	"context"
	"fmt"
	"net"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DiscoveryHost is resolved in the local search domain when no api_url is configured.
const DiscoveryHost = "afp"

// Resolver is the subset of *net.Resolver used for API discovery.
type Resolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// DiscoverAPIURL resolves DiscoveryHost to its fully qualified name and
// returns the default AFP API URL on that host.
func DiscoverAPIURL(ctx context.Context, resolver Resolver) (string, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	fqdn, err := resolver.LookupCNAME(ctx, DiscoveryHost)
	if err != nil {
		return "", fmt.Errorf("no api_url configured and host %q could not be resolved: %w", DiscoveryHost, err)
	}
	fqdn = strings.TrimSuffix(fqdn, ".")
	if fqdn == "" {
		return "", fmt.Errorf("no api_url configured and host %q resolved to an empty name", DiscoveryHost)
	}
	apiURL := fmt.Sprintf("http://%s/afp-api/latest", fqdn)
	log.Debugf("discovered AFP API at %s", apiURL)
	return apiURL, nil
}
