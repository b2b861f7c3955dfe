package cookie

import (
	"errors"
	"fmt"
)

var (
	// ErrNoKeys indicates a signed operation was attempted without signing keys.
	ErrNoKeys = errors.New("cookie: no signing keys configured")

	// ErrCookieNotFound indicates the requested cookie is absent from the request.
	ErrCookieNotFound = errors.New("cookie: not found in request")

	// ErrInvalidSignature indicates signature verification failed, suggesting
	// tampering or a key no longer in the rotation list.
	ErrInvalidSignature = errors.New("cookie: signature verification failed")

	// ErrInvalidFormat indicates a signed cookie value is missing its signature.
	ErrInvalidFormat = errors.New("cookie: invalid signed value format")
)

// ErrCookieTooLarge indicates the serialized cookie exceeds the size limit.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

// Error implements the error interface.
func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie: %q size %d exceeds maximum %d bytes", e.Name, e.Size, e.Max)
}
