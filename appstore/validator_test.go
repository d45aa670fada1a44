package appstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingServer struct {
	*httptest.Server

	hits   int
	bodies []map[string]any
}

func newRecordingServer(t *testing.T, statusCode int, response string) *recordingServer {
	s := &recordingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits++

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		s.bodies = append(s.bodies, body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(response))
	}))
	return s
}

func TestVerifyValidReceipt(t *testing.T) {
	server := newRecordingServer(t, 200, `{"status":0,"product_id":"com.example.app.premium","is_trial_period":"false"}`)
	defer server.Close()

	client := NewClient(
		WithLogger(zap.Must(zap.NewDevelopment())),
		WithEndpointURL(Production, server.URL),
	)

	resp, err := client.Verify(context.Background(), Production, Request{ReceiptData: "cmVjZWlwdA=="})
	require.NoError(t, err)
	require.Equal(t, StatusValid, resp.Status)
	require.Equal(t, "com.example.app.premium", resp.ProductID)
	require.False(t, resp.IsTrialPeriod())
	require.Equal(t, 1, server.hits)

	require.Equal(t, "cmVjZWlwdA==", server.bodies[0]["receipt-data"])
}

func TestVerifySandboxRetry(t *testing.T) {
	production := newRecordingServer(t, 200, `{"status":21007}`)
	defer production.Close()

	sandbox := newRecordingServer(t, 200, `{"status":0,"transaction_id":"1000000000000001"}`)
	defer sandbox.Close()

	client := NewClient(
		WithEndpointURL(Production, production.URL),
		WithEndpointURL(Sandbox, sandbox.URL),
	)

	resp, err := client.Verify(context.Background(), Production, Request{
		ReceiptData: "cmVjZWlwdA==",
		Password:    "shared-secret",
	})
	require.NoError(t, err)
	require.Equal(t, StatusValid, resp.Status)
	require.Equal(t, "1000000000000001", resp.TransactionID)

	require.Equal(t, 1, production.hits)
	require.Equal(t, 1, sandbox.hits)

	// The retry resubmits the same receipt and secret.
	require.Equal(t, production.bodies[0], sandbox.bodies[0])
}

func TestVerifySandboxRetryIsBounded(t *testing.T) {
	production := newRecordingServer(t, 200, `{"status":21007}`)
	defer production.Close()

	sandbox := newRecordingServer(t, 200, `{"status":21007}`)
	defer sandbox.Close()

	client := NewClient(
		WithEndpointURL(Production, production.URL),
		WithEndpointURL(Sandbox, sandbox.URL),
	)

	resp, err := client.Verify(context.Background(), Production, Request{ReceiptData: "cmVjZWlwdA=="})
	require.NoError(t, err)
	require.Equal(t, StatusSandboxReceipt, resp.Status)
	require.Equal(t, 1, production.hits)
	require.Equal(t, 1, sandbox.hits)
}

func TestVerifyNoRetryFromSandbox(t *testing.T) {
	sandbox := newRecordingServer(t, 200, `{"status":21007}`)
	defer sandbox.Close()

	client := NewClient(WithEndpointURL(Sandbox, sandbox.URL))

	resp, err := client.Verify(context.Background(), Sandbox, Request{ReceiptData: "cmVjZWlwdA=="})
	require.NoError(t, err)
	require.Equal(t, StatusSandboxReceipt, resp.Status)
	require.Equal(t, 1, sandbox.hits)
}

func TestVerifyTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte("internal server error"))
	}))
	defer server.Close()

	client := NewClient(WithEndpointURL(Production, server.URL))

	_, err := client.Verify(context.Background(), Production, Request{ReceiptData: "cmVjZWlwdA=="})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, 500, transportErr.StatusCode)
	require.Equal(t, []byte("internal server error"), transportErr.Body)
}

func TestVerifyDecodeError(t *testing.T) {
	server := newRecordingServer(t, 200, `this is not json`)
	defer server.Close()

	client := NewClient(WithEndpointURL(Production, server.URL))

	_, err := client.Verify(context.Background(), Production, Request{ReceiptData: "cmVjZWlwdA=="})

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)

	var transportErr *TransportError
	require.False(t, errors.As(err, &transportErr))
}

func TestVerifyUnknownEndpoint(t *testing.T) {
	client := NewClient()

	_, err := client.Verify(context.Background(), Endpoint("staging"), Request{ReceiptData: "cmVjZWlwdA=="})

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, Endpoint("staging"), configErr.Endpoint)
}

func TestRequestEncoding(t *testing.T) {
	t.Run("password omitted when unset", func(t *testing.T) {
		server := newRecordingServer(t, 200, `{"status":0}`)
		defer server.Close()

		client := NewClient(WithEndpointURL(Production, server.URL))
		_, err := client.Verify(context.Background(), Production, Request{ReceiptData: "cmVjZWlwdA=="})
		require.NoError(t, err)

		_, ok := server.bodies[0]["password"]
		require.False(t, ok)
	})

	t.Run("password included when set", func(t *testing.T) {
		server := newRecordingServer(t, 200, `{"status":0}`)
		defer server.Close()

		client := NewClient(WithEndpointURL(Production, server.URL))
		_, err := client.Verify(context.Background(), Production, Request{
			ReceiptData: "cmVjZWlwdA==",
			Password:    "shared-secret",
		})
		require.NoError(t, err)

		require.Equal(t, "shared-secret", server.bodies[0]["password"])
	})
}

func TestValidator(t *testing.T) {
	server := newRecordingServer(t, 200, `{"status":0}`)
	defer server.Close()

	validator, err := NewValidator(Production, WithEndpointURL(Production, server.URL))
	require.NoError(t, err)

	validator.SetReceiptData(`{"signature":"...","purchase-info":"..."}`)
	validator.SetSharedSecret("shared-secret")

	resp, err := validator.Validate(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusValid, resp.Status)

	require.Equal(t, validator.GetReceiptData(), server.bodies[0]["receipt-data"])
	require.Equal(t, "shared-secret", server.bodies[0]["password"])
}

func TestNewValidatorUnknownEndpoint(t *testing.T) {
	_, err := NewValidator(Endpoint("staging"))

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
}

func TestSetReceiptData(t *testing.T) {
	validator, err := NewValidator(Production)
	require.NoError(t, err)

	t.Run("base64 is stored verbatim", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("receipt"))
		validator.SetReceiptData(encoded)
		require.Equal(t, encoded, validator.GetReceiptData())

		// Idempotent: setting the stored value again changes nothing.
		validator.SetReceiptData(validator.GetReceiptData())
		require.Equal(t, encoded, validator.GetReceiptData())
	})

	t.Run("raw JSON is encoded", func(t *testing.T) {
		raw := `{"signature":"...","purchase-info":"..."}`
		validator.SetReceiptData(raw)

		decoded, err := base64.StdEncoding.DecodeString(validator.GetReceiptData())
		require.NoError(t, err)
		require.Equal(t, raw, string(decoded))
	})
}

// Verifies against the real production endpoint. Requires a genuine receipt,
// so it is skipped unless APPSTORE_TEST_RECEIPT is set.
func TestProductionEndpoint(t *testing.T) {
	_ = godotenv.Load()

	receiptData := os.Getenv("APPSTORE_TEST_RECEIPT")
	if receiptData == "" {
		t.Skip("APPSTORE_TEST_RECEIPT is not set, skipping integration test")
	}

	validator, err := NewValidator(Production, WithLogger(zap.Must(zap.NewDevelopment())))
	require.NoError(t, err)

	resp, err := validator.ValidateReceipt(context.Background(), receiptData, os.Getenv("APPSTORE_SHARED_SECRET"))
	require.NoError(t, err)

	t.Logf("status: %d (%s)", resp.Status, StatusDescription(resp.Status))
}
