// Package planner turns a category's total amount into per-product unit
// quantities and attaches catalog display data.
package planner

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/okian/thehub/internal/domain/catalog"
	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/pkg/logger"
)

// Option applies a configuration option to the Planner.
type Option func(*Planner)

// WithLogger sets the logger used for enrichment failures.
func WithLogger(l logger.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// Planner builds product recommendation lines.
type Planner struct {
	fetcher catalog.Fetcher
	log     logger.Logger
}

// New creates a Planner that enriches lines through fetcher.
func New(fetcher catalog.Fetcher, opts ...Option) *Planner {
	p := &Planner{fetcher: fetcher, log: logger.Get().Named("planner")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Quantity returns the number of units needed to cover total. A product
// without a usable package size is always recommended once.
func Quantity(total, amountPerUnit float64) int {
	if amountPerUnit <= 0 || math.IsNaN(amountPerUnit) {
		return 1
	}
	q := math.Ceil(total / amountPerUnit)
	switch {
	case math.IsNaN(q) || q < 0:
		return 0
	case q > math.MaxInt32:
		return math.MaxInt32
	}
	return int(q)
}

// Candidates returns the products of categoryID, highest priority first.
// Products with equal priority keep their configured order.
func Candidates(products []model.Product, categoryID string) []model.Product {
	var out []model.Product
	for _, p := range products {
		if p.InCategory(categoryID) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// Plan returns one line per product of categoryID. Enrichment failures leave
// the display fields empty; they never drop a line.
func (p *Planner) Plan(ctx context.Context, products []model.Product, categoryID string, total float64) []model.ProductRecommendation {
	candidates := Candidates(products, categoryID)
	if len(candidates) == 0 {
		return []model.ProductRecommendation{}
	}

	lines := make([]model.ProductRecommendation, len(candidates))
	refs := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = model.ProductRecommendation{
			ProductID:           c.ID,
			ProductName:         c.Name,
			AmountPerUnit:       c.AmountPerUnit,
			QuantityRecommended: Quantity(total, c.AmountPerUnit),
		}
		refs[i] = c.ShopifyGID
	}

	for _, r := range p.fetcher.FetchAll(ctx, refs) {
		if r.Index < 0 || r.Index >= len(lines) {
			continue
		}
		if r.Err != nil {
			if !errors.Is(r.Err, catalog.ErrNotFound) {
				p.log.Warn(ctx, "catalog enrichment failed",
					logger.String("product_id", lines[r.Index].ProductID),
					logger.String("ref", refs[r.Index]),
					logger.Error(r.Err))
			}
			continue
		}
		enrich(&lines[r.Index], r.Display)
	}
	return lines
}

func enrich(line *model.ProductRecommendation, d catalog.Display) {
	if line.ProductName == "" {
		line.ProductName = d.Title
	}
	line.ProductURL = d.PurchaseURL
	line.ImageURL = d.ImageURL
	line.VariantID = d.VariantID
	line.Price = d.Price
}
