package appstore

// Status codes returned by the verification service. A zero status means the
// receipt is valid; everything else describes why verification failed.
const (
	StatusValid = 0

	// The receipt-data property was malformed or missing.
	StatusUnreadableReceipt = 21000
	// The receipt could not be authenticated.
	StatusMalformedReceipt = 21002
	// The receipt signature check failed.
	StatusAuthenticationFailed = 21003
	// The shared secret does not match the one on file for the application.
	StatusSharedSecretMismatch = 21004
	// The receipt server is temporarily unavailable.
	StatusServerUnavailable = 21005
	// The subscription has expired. The full receipt is still decoded and
	// returned alongside this status.
	StatusSubscriptionExpired = 21006
	// A sandbox receipt was sent to the production endpoint. Triggers the
	// automatic sandbox retry.
	StatusSandboxReceipt = 21007
	// A production receipt was sent to the sandbox endpoint.
	StatusProductionReceipt = 21008
	// The account for the receipt no longer exists.
	StatusAccountNotFound = 21010
)

// StatusDescription returns a human-readable description of a verification
// status code, for logs and error messages.
func StatusDescription(status int) string {
	switch status {
	case StatusValid:
		return "receipt is valid"
	case StatusUnreadableReceipt:
		return "receipt data was malformed or missing"
	case StatusMalformedReceipt:
		return "receipt data could not be authenticated"
	case StatusAuthenticationFailed:
		return "receipt signature verification failed"
	case StatusSharedSecretMismatch:
		return "shared secret does not match"
	case StatusServerUnavailable:
		return "receipt server is temporarily unavailable"
	case StatusSubscriptionExpired:
		return "subscription has expired"
	case StatusSandboxReceipt:
		return "sandbox receipt was sent to the production endpoint"
	case StatusProductionReceipt:
		return "production receipt was sent to the sandbox endpoint"
	case StatusAccountNotFound:
		return "account for this receipt no longer exists"
	default:
		return "unknown verification status"
	}
}
