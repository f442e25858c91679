package util

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPOptions configures the shared outbound HTTP client
type HTTPOptions struct {
	Timeout      time.Duration
	RetryMax     int
	RetryBackoff time.Duration
	HTTPProxy    string
	HTTPSProxy   string
	NoProxy      string
}

// NewHTTPClient builds the client used for every vendor and search call:
// configured proxies, retries of transient failures and an overall timeout.
func NewHTTPClient(opts HTTPOptions) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.Proxy = NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &RetryTransport{
			Base:        base,
			MaxAttempts: opts.RetryMax,
			Backoff:     opts.RetryBackoff,
		},
	}
}

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
// Hosts listed in noProxy (comma separated, suffix match) bypass the proxy.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitNoProxy(noProxy string) []string {
	var hosts []string
	for _, h := range strings.Split(noProxy, ",") {
		h = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h)), ".")
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func bypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if b == "*" || host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
