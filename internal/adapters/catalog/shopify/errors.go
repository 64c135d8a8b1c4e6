package shopify

import (
	"errors"
	"fmt"

	"github.com/okian/thehub/internal/domain/catalog"
)

var (
	ErrNotConfigured = errors.New("shopify: domain and token are required")
	ErrRequestFailed = errors.New("shopify: request failed")
	ErrBadResponse   = errors.New("shopify: malformed response")
	ErrGraphQL       = errors.New("shopify: graphql error")
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shopify: unexpected status %d: %s", e.Code, e.Body)
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound)
}
