package appstore

import "fmt"

// ConfigurationError indicates an endpoint value that is neither Production
// nor Sandbox.
type ConfigurationError struct {
	Endpoint Endpoint
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unrecognized endpoint: %q", string(e.Endpoint))
}

// TransportError indicates the verification request never produced a usable
// response: either the underlying network call failed (Err is set) or the
// service replied with a non-200 HTTP status (StatusCode and Body are set,
// and the body is returned raw, never decoded).
type TransportError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sending verification request: %v", e.Err)
	}
	return fmt.Sprintf("unexpected http status code: %d (body: %s)", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError indicates the service was reachable and replied with HTTP 200,
// but the body was not a valid receipt response.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding verification response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
