// Package util holds small helpers shared by the API clients.
package util

import (
	"net/http"
	"net/url"
)

// NewProxyFunc builds the proxy selector for an http.Transport. With no
// explicit proxies configured it defers to the standard environment
// variables, which keeps the clients usable behind corporate proxies
// without extra flags.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
