// Package catalog describes how product display data is fetched from the
// storefront. Lookups are best effort: callers never fail a request because
// the catalog could not answer.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the catalog has no product for a reference.
var ErrNotFound = errors.New("catalog: product not found")

// Display holds the storefront fields attached to a product recommendation.
type Display struct {
	Title       string
	ImageURL    string
	PurchaseURL string
	VariantID   string
	Price       string
}

// Client resolves a product reference (a Shopify GID) to display data.
type Client interface {
	Lookup(ctx context.Context, ref string) (Display, error)
}

// Unavailable is a Client for deployments without a storefront.
// Every lookup is not found.
type Unavailable struct{}

// Lookup implements Client.
func (Unavailable) Lookup(context.Context, string) (Display, error) {
	return Display{}, ErrNotFound
}

// Result is the outcome of one lookup in a batch. Index is the position of the
// reference in the batch request.
type Result struct {
	Index   int
	Display Display
	Err     error
}

// Fetcher resolves a batch of references. The returned slice has one Result
// per reference, in request order.
type Fetcher interface {
	FetchAll(ctx context.Context, refs []string) []Result
}

// Sequential is a Fetcher that performs lookups one after another on the
// calling goroutine.
type Sequential struct {
	Client Client
}

// FetchAll implements Fetcher.
func (s Sequential) FetchAll(ctx context.Context, refs []string) []Result {
	out := make([]Result, len(refs))
	for i, ref := range refs {
		out[i].Index = i
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		out[i].Display, out[i].Err = s.Client.Lookup(ctx, ref)
	}
	return out
}
