package utils

import (
	"bytes"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"

	"imgedit-backend/pkg/logger"
)

// NewHTTPClient returns the client used for model provider calls. A zero
// timeout means no client-side limit. With debug set, outgoing POST bodies
// are logged with credentials redacted.
func NewHTTPClient(timeout time.Duration, debug bool) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if debug {
		transport = NewDebugTransport(transport)
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// DebugTransport logs request line, headers and body at debug level.
type DebugTransport struct {
	base http.RoundTripper
}

func NewDebugTransport(base http.RoundTripper) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.Errorf("[model debug] %s %s failed: %v", req.Method, req.URL, err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	logger.Debugf("[model debug] %s %s", req.Method, req.URL)
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			logger.Debugf("[model debug]   %s: [REDACTED]", name)
			continue
		}
		logger.Debugf("[model debug]   %s: %s", name, strings.Join(values, ", "))
	}

	if req.Body == nil {
		return
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		logger.Errorf("[model debug] failed to read request body: %v", err)
		return
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	logger.Debugf("[model debug] body (%d bytes): %s", len(body), body)
}

func isSensitiveHeader(name string) bool {
	for _, sensitive := range []string{"Authorization", "X-Api-Key", "X-Auth-Token", "Cookie"} {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}
