package appstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Endpoint selects which deployment of the verification service a request is
// sent to.
type Endpoint string

const (
	// Production verifies receipts from real purchases.
	Production Endpoint = "production"

	// Sandbox verifies receipts issued by the test environment.
	Sandbox Endpoint = "sandbox"
)

const (
	ProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	SandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"
)

func (e Endpoint) valid() bool {
	return e == Production || e == Sandbox
}

// Request is the verification payload. Password is the application's shared
// secret; it is omitted from the encoded body entirely when unset, as the
// service requires it only for auto-renewable subscription receipts.
type Request struct {
	ReceiptData string `json:"receipt-data"`
	Password    string `json:"password,omitempty"`
}

// Client verifies receipts against the verification service. It holds no
// per-request state, so a single Client is safe for concurrent use.
type Client struct {
	log          *zap.Logger
	transport    Transport
	endpointURLs map[Endpoint]string
}

type ClientOption func(*Client)

// WithLogger replaces the default no-op logger. The client logs the HTTP
// status and raw body of every verification attempt at debug level.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithTransport replaces the default HTTP transport.
func WithTransport(transport Transport) ClientOption {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithInsecureTransport disables TLS certificate verification on the default
// transport. Verification is on unless this option is given.
func WithInsecureTransport() ClientOption {
	return func(c *Client) {
		c.transport = NewInsecureHTTPTransport()
	}
}

// WithEndpointURL overrides the URL an endpoint resolves to, so tests can
// point Production and Sandbox at local servers.
func WithEndpointURL(endpoint Endpoint, url string) ClientOption {
	return func(c *Client) {
		c.endpointURLs[endpoint] = url
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		log:       zap.NewNop(),
		transport: NewHTTPTransport(),
		endpointURLs: map[Endpoint]string{
			Production: ProductionURL,
			Sandbox:    SandboxURL,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify submits the request to the given endpoint and returns the decoded
// response. If the production service reports that the receipt was issued by
// the sandbox environment, the request is retried once against the sandbox
// endpoint and that result is returned instead; the switch applies to this
// call only. Every other non-valid status is returned to the caller as a
// decoded response, not an error.
func (c *Client) Verify(ctx context.Context, endpoint Endpoint, req Request) (*ReceiptResponse, error) {
	if !endpoint.valid() {
		return nil, &ConfigurationError{Endpoint: endpoint}
	}
	return c.verify(ctx, endpoint, req, uuid.NewString(), 0)
}

func (c *Client) verify(ctx context.Context, endpoint Endpoint, req Request, requestID string, attempt int) (*ReceiptResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request body")
	}

	log := c.log.With(
		zap.String("request_id", requestID),
		zap.String("endpoint", string(endpoint)),
		zap.Int("attempt", attempt),
	)

	status, respBody, err := c.transport.Send(ctx, c.endpointURLs[endpoint], body)
	if err != nil {
		log.Debug("Verification request failed", zap.Error(err))
		return nil, &TransportError{Err: err}
	}

	log.Debug("Got a verification response",
		zap.Int("http_status", status),
		zap.ByteString("body", respBody),
	)

	if status != http.StatusOK {
		return nil, &TransportError{StatusCode: status, Body: respBody}
	}

	var resp ReceiptResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &DecodeError{Err: err}
	}

	// A sandbox receipt sent to production is retried against the sandbox
	// endpoint, at most once per call.
	if attempt < 1 && endpoint == Production && resp.Status == StatusSandboxReceipt {
		log.Debug("Sandbox receipt sent to production, retrying against sandbox")
		return c.verify(ctx, Sandbox, req, requestID, attempt+1)
	}

	return &resp, nil
}

// Validator is a mutable configuration holder around Client, mirroring the
// configure-then-validate shape of older receipt validation clients. Validate
// reads the stored endpoint, receipt data and shared secret, so a Validator
// must not be shared between concurrent callers; use Client.Verify directly
// for concurrent workloads.
type Validator struct {
	client       *Client
	endpoint     Endpoint
	receiptData  string
	sharedSecret string
}

// NewValidator returns a Validator targeting the given endpoint, or a
// ConfigurationError if the endpoint is not Production or Sandbox.
func NewValidator(endpoint Endpoint, opts ...ClientOption) (*Validator, error) {
	if !endpoint.valid() {
		return nil, &ConfigurationError{Endpoint: endpoint}
	}
	return &Validator{
		client:   NewClient(opts...),
		endpoint: endpoint,
	}, nil
}

// SetEndpoint retargets subsequent Validate calls.
func (v *Validator) SetEndpoint(endpoint Endpoint) error {
	if !endpoint.valid() {
		return &ConfigurationError{Endpoint: endpoint}
	}
	v.endpoint = endpoint
	return nil
}

// SetReceiptData stores the receipt payload to validate. Raw receipt JSON
// (anything containing a '{') is base64-encoded first; anything else is
// assumed to already be base64 and stored verbatim.
func (v *Validator) SetReceiptData(data string) {
	if strings.Contains(data, "{") {
		data = base64.StdEncoding.EncodeToString([]byte(data))
	}
	v.receiptData = data
}

// GetReceiptData returns the stored base64 receipt payload.
func (v *Validator) GetReceiptData() string {
	return v.receiptData
}

// SetSharedSecret stores the application's shared secret. An empty secret is
// omitted from the request body.
func (v *Validator) SetSharedSecret(secret string) {
	v.sharedSecret = secret
}

// Validate verifies the stored receipt against the configured endpoint.
func (v *Validator) Validate(ctx context.Context) (*ReceiptResponse, error) {
	return v.client.Verify(ctx, v.endpoint, Request{
		ReceiptData: v.receiptData,
		Password:    v.sharedSecret,
	})
}

// ValidateReceipt stores the given receipt data, and shared secret when
// non-empty, then validates. The stored values replace any previous ones.
func (v *Validator) ValidateReceipt(ctx context.Context, receiptData, sharedSecret string) (*ReceiptResponse, error) {
	v.SetReceiptData(receiptData)
	if sharedSecret != "" {
		v.sharedSecret = sharedSecret
	}
	return v.Validate(ctx)
}
