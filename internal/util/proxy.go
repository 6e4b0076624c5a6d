// Package util holds small helpers shared by the afp packages.
package util

import (
	"context"
	"net"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// SetProxy configures httpClient to route requests through proxyURL.
// Supported schemes are http, https and socks5. An empty or invalid proxy URL
// leaves the client unchanged.
func SetProxy(proxyURL string, httpClient *http.Client) *http.Client {
	if proxyURL == "" {
		return httpClient
	}
	parsed, errParse := url.Parse(proxyURL)
	if errParse != nil {
		log.Errorf("invalid proxy url %q: %v", proxyURL, errParse)
		return httpClient
	}

	var transport *http.Transport
	switch parsed.Scheme {
	case "socks5":
		var proxyAuth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			proxyAuth = &proxy.Auth{User: parsed.User.Username(), Password: password}
		}
		dialer, errSOCKS5 := proxy.SOCKS5("tcp", parsed.Host, proxyAuth, proxy.Direct)
		if errSOCKS5 != nil {
			log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
			return httpClient
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
	default:
		log.Warnf("unsupported proxy scheme %q, ignoring proxy", parsed.Scheme)
	}

	if transport != nil {
		httpClient.Transport = transport
	}
	return httpClient
}
