// Package shopify resolves product references against the Shopify Admin
// GraphQL API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/thehub/internal/domain/catalog"
	"github.com/okian/thehub/pkg/metrics"
)

const (
	// DefaultAPIVersion is the Admin API version queried when none is configured.
	DefaultAPIVersion = "2024-04"

	productGIDPrefix = "gid://shopify/Product/"
	variantGIDPrefix = "gid://shopify/ProductVariant/"
	maxErrorBody     = 4 << 10
)

const productQuery = `query ProductDisplay($id: ID!) {
  product(id: $id) {
    title
    onlineStoreUrl
    featuredImage { url }
    variants(first: 1) { edges { node { id price } } }
  }
}`

// Config configures the client.
type Config struct {
	// Domain is the shop's myshopify domain, e.g. "example.myshopify.com".
	Domain string
	// Token is the Admin API access token. Never logged.
	Token      string
	APIVersion string
	Timeout    time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	// Endpoint overrides the URL derived from Domain and APIVersion.
	Endpoint string
}

// Client implements catalog.Client.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

// NewClient creates a Shopify catalog client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Domain) == "" && cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Token == "" {
		return nil, ErrNotConfigured
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		version := cfg.APIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", strings.TrimSpace(cfg.Domain), version)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{httpClient: httpClient, endpoint: endpoint, token: cfg.Token}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Product *struct {
			Title          string  `json:"title"`
			OnlineStoreURL *string `json:"onlineStoreUrl"`
			FeaturedImage  *struct {
				URL string `json:"url"`
			} `json:"featuredImage"`
			Variants struct {
				Edges []struct {
					Node struct {
						ID    string `json:"id"`
						Price string `json:"price"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"variants"`
		} `json:"product"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Lookup implements catalog.Client.
func (c *Client) Lookup(ctx context.Context, ref string) (catalog.Display, error) {
	if !strings.HasPrefix(ref, productGIDPrefix) || len(ref) == len(productGIDPrefix) {
		metrics.RecordCatalogLookup("not_found", 0)
		return catalog.Display{}, fmt.Errorf("%w: %q is not a product reference", catalog.ErrNotFound, ref)
	}

	start := time.Now()
	d, err := c.lookup(ctx, ref)
	elapsed := float64(time.Since(start).Milliseconds())
	switch {
	case err == nil:
		metrics.RecordCatalogLookup("ok", elapsed)
	case isNotFound(err):
		metrics.RecordCatalogLookup("not_found", elapsed)
	default:
		metrics.RecordCatalogLookup("error", elapsed)
	}
	return d, err
}

func (c *Client) lookup(ctx context.Context, ref string) (catalog.Display, error) {
	body, err := json.Marshal(graphQLRequest{Query: productQuery, Variables: map[string]any{"id": ref}})
	if err != nil {
		return catalog.Display{}, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return catalog.Display{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return catalog.Display{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return catalog.Display{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var out graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return catalog.Display{}, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if len(out.Errors) > 0 {
		return catalog.Display{}, fmt.Errorf("%w: %s", ErrGraphQL, out.Errors[0].Message)
	}

	p := out.Data.Product
	if p == nil {
		return catalog.Display{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, ref)
	}

	d := catalog.Display{Title: p.Title}
	if p.OnlineStoreURL != nil {
		d.PurchaseURL = *p.OnlineStoreURL
	}
	if p.FeaturedImage != nil {
		d.ImageURL = p.FeaturedImage.URL
	}
	if len(p.Variants.Edges) > 0 {
		v := p.Variants.Edges[0].Node
		d.VariantID = VariantID(v.ID)
		d.Price = v.Price
	}
	return d, nil
}

// VariantID reduces a variant GID to the numeric id the storefront cart
// expects. Values that are not variant GIDs are returned unchanged.
func VariantID(gid string) string {
	return strings.TrimPrefix(gid, variantGIDPrefix)
}
