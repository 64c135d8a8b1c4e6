// Package repository provides read access to the questionnaire configuration.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/thehub/internal/domain/model"
)

// Store provides read access to the configuration collections. Each call
// reflects the configuration at the time of the call.
type Store interface {
	ListSports(ctx context.Context) ([]model.Sport, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListQuestions(ctx context.Context) ([]model.Question, error)
	// ListRules returns rules in their configured order.
	ListRules(ctx context.Context) ([]model.Rule, error)
}

// Collection names, used in errors and metrics labels.
const (
	CollectionSports     = "sports"
	CollectionCategories = "categories"
	CollectionProducts   = "products"
	CollectionQuestions  = "questions"
	CollectionRules      = "rules"
)

// applyDefaults fills the fields every store treats as optional.
func applyDefaults(snap *model.Snapshot) {
	for i := range snap.Categories {
		if snap.Categories[i].SportIDs == nil {
			snap.Categories[i].SportIDs = []string{}
		}
	}
	for i := range snap.Products {
		if snap.Products[i].CategoryIDs == nil {
			snap.Products[i].CategoryIDs = []string{}
		}
	}
	for i := range snap.Questions {
		q := &snap.Questions[i]
		if q.Key == "" {
			q.Key = model.KeyFromText(q.Text)
		}
		if q.Sports == nil {
			q.Sports = []model.SportOrder{}
		}
		if q.TimeComponents == nil {
			q.TimeComponents = []model.TimeComponent{}
		}
	}
	for i := range snap.Rules {
		r := &snap.Rules[i]
		if r.Logic == "" {
			r.Logic = model.LogicAnd
		}
		if r.Modifiers == nil {
			r.Modifiers = []model.Modifier{}
		}
	}
}

// validate rejects documents the questionnaire cannot render.
func validate(snap model.Snapshot) error {
	for _, q := range snap.Questions {
		if !q.Type.Valid() {
			return fmt.Errorf("%w: question %q has unknown type %q", ErrInvalidDocument, q.Key, q.Type)
		}
	}
	return nil
}
