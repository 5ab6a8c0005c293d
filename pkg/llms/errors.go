package llms

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors classifying provider failures.
// Adapters wrap vendor SDK errors into one of these so the caller can
// decide on retry or abort without knowing the vendor.
var (
	// ErrAuth means the provider rejected the credentials.
	ErrAuth = errors.New("provider authentication failed")
	// ErrTransport means the request did not complete: network failure,
	// timeout, or a 5xx from the vendor.
	ErrTransport = errors.New("provider transport failure")
	// ErrProtocol means the provider returned a response that could not
	// be interpreted.
	ErrProtocol = errors.New("provider protocol failure")
)

// IsAuthError reports whether err was classified as an authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsTransportError reports whether err was classified as a transport failure.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// ClassifyHTTPStatus wraps err with the sentinel matching an HTTP status
// code returned by a vendor API.
func ClassifyHTTPStatus(status int, err error) error {
	switch {
	case status == 401 || status == 403:
		return errors.WithSecondaryError(ErrAuth, err)
	case status == 429 || status >= 500:
		return errors.WithSecondaryError(ErrTransport, err)
	default:
		return errors.WithSecondaryError(ErrProtocol, err)
	}
}
