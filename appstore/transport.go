package appstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// Transport sends an encoded verification request and returns the raw reply.
type Transport interface {

	// Send posts a JSON body to url and returns the HTTP status code and the
	// raw response body. An error is returned only for network-level
	// failures; non-200 statuses are reported through the status code.
	Send(ctx context.Context, url string, body []byte) (int, []byte, error)
}

// HTTPTransport is the default Transport, backed by net/http.
type HTTPTransport struct {
	httpClient *http.Client
}

// NewHTTPTransport returns a transport with a 30 second request timeout and
// full TLS certificate verification.
func NewHTTPTransport() *HTTPTransport {
	return NewHTTPTransportWithClient(&http.Client{
		Timeout: defaultTimeout,
	})
}

// NewInsecureHTTPTransport returns a transport that skips TLS certificate
// verification. This matches the behavior of older receipt validation
// clients, but it allows the verification response to be tampered with in
// transit; use it only against test endpoints.
func NewInsecureHTTPTransport() *HTTPTransport {
	return NewHTTPTransportWithClient(&http.Client{
		Timeout: defaultTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
}

// NewHTTPTransportWithClient wraps a caller-supplied http.Client, for custom
// timeouts or proxy configuration.
func NewHTTPTransportWithClient(httpClient *http.Client) *HTTPTransport {
	return &HTTPTransport{httpClient: httpClient}
}

func (t *HTTPTransport) Send(ctx context.Context, url string, body []byte) (int, []byte, error) {
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, errors.Wrap(err, "creating request")
	}

	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading response body")
	}

	return resp.StatusCode, respBody, nil
}
