package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/appstore-receipt/appstore"
)

// ScriptedTransport is an appstore.Transport whose responses can be queued
// up-front, so the generic validator tests can run against any backing
// implementation.
type ScriptedTransport interface {
	appstore.Transport

	// Script queues a response for the given URL.
	Script(url string, statusCode int, body []byte)
}

func RunGenericValidatorTests(t *testing.T, newTransport func() ScriptedTransport, teardown func()) {
	for _, testFunc := range []func(t *testing.T, newTransport func() ScriptedTransport){
		testValidReceipt,
		testSandboxRetry,
		testRetryIsBounded,
		testNoRetryFromSandbox,
		testTransportError,
		testDecodeError,
	} {
		testFunc(t, newTransport)
		teardown()
	}
}

func testValidReceipt(t *testing.T, newTransport func() ScriptedTransport) {
	ctx := context.Background()

	transport := newTransport()
	transport.Script(appstore.ProductionURL, 200, []byte(`{"status":0,"product_id":"com.example.premium"}`))

	client := appstore.NewClient(appstore.WithTransport(transport))
	resp, err := client.Verify(ctx, appstore.Production, appstore.Request{ReceiptData: "cmVjZWlwdA=="})
	require.NoError(t, err)
	require.Equal(t, appstore.StatusValid, resp.Status)
	require.Equal(t, "com.example.premium", resp.ProductID)
}

func testSandboxRetry(t *testing.T, newTransport func() ScriptedTransport) {
	ctx := context.Background()

	transport := newTransport()
	transport.Script(appstore.ProductionURL, 200, []byte(`{"status":21007}`))
	transport.Script(appstore.SandboxURL, 200, []byte(`{"status":0,"transaction_id":"1000000000000001"}`))

	client := appstore.NewClient(appstore.WithTransport(transport))
	resp, err := client.Verify(ctx, appstore.Production, appstore.Request{ReceiptData: "cmVjZWlwdA=="})
	require.NoError(t, err)
	require.Equal(t, appstore.StatusValid, resp.Status)
	require.Equal(t, "1000000000000001", resp.TransactionID)
}

func testRetryIsBounded(t *testing.T, newTransport func() ScriptedTransport) {
	ctx := context.Background()

	// Even if the sandbox endpoint also reports a sandbox mismatch, there is
	// no second retry; the response is returned as-is.
	transport := newTransport()
	transport.Script(appstore.ProductionURL, 200, []byte(`{"status":21007}`))
	transport.Script(appstore.SandboxURL, 200, []byte(`{"status":21007}`))

	client := appstore.NewClient(appstore.WithTransport(transport))
	resp, err := client.Verify(ctx, appstore.Production, appstore.Request{ReceiptData: "cmVjZWlwdA=="})
	require.NoError(t, err)
	require.Equal(t, appstore.StatusSandboxReceipt, resp.Status)
}

func testNoRetryFromSandbox(t *testing.T, newTransport func() ScriptedTransport) {
	ctx := context.Background()

	transport := newTransport()
	transport.Script(appstore.SandboxURL, 200, []byte(`{"status":21007}`))

	client := appstore.NewClient(appstore.WithTransport(transport))
	resp, err := client.Verify(ctx, appstore.Sandbox, appstore.Request{ReceiptData: "cmVjZWlwdA=="})
	require.NoError(t, err)
	require.Equal(t, appstore.StatusSandboxReceipt, resp.Status)
}

func testTransportError(t *testing.T, newTransport func() ScriptedTransport) {
	ctx := context.Background()

	// The body of a non-200 reply is carried in the error and never decoded,
	// so garbage is fine here.
	transport := newTransport()
	transport.Script(appstore.ProductionURL, 500, []byte("internal server error"))

	client := appstore.NewClient(appstore.WithTransport(transport))
	_, err := client.Verify(ctx, appstore.Production, appstore.Request{ReceiptData: "cmVjZWlwdA=="})

	var transportErr *appstore.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, 500, transportErr.StatusCode)
	require.Equal(t, []byte("internal server error"), transportErr.Body)
}

func testDecodeError(t *testing.T, newTransport func() ScriptedTransport) {
	ctx := context.Background()

	transport := newTransport()
	transport.Script(appstore.ProductionURL, 200, []byte("not json"))

	client := appstore.NewClient(appstore.WithTransport(transport))
	_, err := client.Verify(ctx, appstore.Production, appstore.Request{ReceiptData: "cmVjZWlwdA=="})

	var decodeErr *appstore.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	var transportErr *appstore.TransportError
	require.False(t, errors.As(err, &transportErr))
}
