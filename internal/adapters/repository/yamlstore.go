package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/pkg/logger"
	"github.com/okian/thehub/pkg/metrics"
)

// document is the on-disk layout. Products and questions are kept as nodes
// so absent fields can be told apart from explicit zero values.
type document struct {
	Sports     []model.Sport    `yaml:"sports"`
	Categories []model.Category `yaml:"categories"`
	Products   []yaml.Node      `yaml:"products"`
	Questions  []yaml.Node      `yaml:"questions"`
	Rules      []model.Rule     `yaml:"rules"`
}

type productPresence struct {
	Priority      *int     `yaml:"priority"`
	AmountPerUnit *float64 `yaml:"amountPerUnit"`
}

// questionPresence carries the older single-sport shape, where a question
// had a top-level sportId and order instead of a sports list.
type questionPresence struct {
	Sports  *[]model.SportOrder `yaml:"sports"`
	SportID string              `yaml:"sportId"`
	Order   int                 `yaml:"order"`
}

// DecodeSnapshot reads a YAML configuration document and applies defaults.
func DecodeSnapshot(r io.Reader) (model.Snapshot, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	snap := model.Snapshot{
		Sports:     doc.Sports,
		Categories: doc.Categories,
		Rules:      doc.Rules,
		Products:   make([]model.Product, 0, len(doc.Products)),
		Questions:  make([]model.Question, 0, len(doc.Questions)),
	}
	for i := range doc.Questions {
		var q model.Question
		var seen questionPresence
		if err := doc.Questions[i].Decode(&q); err != nil {
			return model.Snapshot{}, fmt.Errorf("%w: question %d: %w", ErrInvalidDocument, i, err)
		}
		if err := doc.Questions[i].Decode(&seen); err != nil {
			return model.Snapshot{}, fmt.Errorf("%w: question %d: %w", ErrInvalidDocument, i, err)
		}
		if seen.Sports == nil && seen.SportID != "" {
			q.Sports = []model.SportOrder{{SportID: seen.SportID, Order: seen.Order}}
		}
		snap.Questions = append(snap.Questions, q)
	}
	for i := range doc.Products {
		var p model.Product
		var seen productPresence
		if err := doc.Products[i].Decode(&p); err != nil {
			return model.Snapshot{}, fmt.Errorf("%w: product %d: %w", ErrInvalidDocument, i, err)
		}
		if err := doc.Products[i].Decode(&seen); err != nil {
			return model.Snapshot{}, fmt.Errorf("%w: product %d: %w", ErrInvalidDocument, i, err)
		}
		if seen.Priority == nil {
			p.Priority = model.DefaultPriority
		}
		if seen.AmountPerUnit == nil {
			p.AmountPerUnit = model.DefaultAmountPerUnit
		}
		snap.Products = append(snap.Products, p)
	}
	applyDefaults(&snap)
	if err := validate(snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// ReadSnapshotFile decodes the YAML configuration document at path.
func ReadSnapshotFile(path string) (model.Snapshot, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = f.Close() }()
	return DecodeSnapshot(f)
}

// YAMLStore serves configuration from a YAML file. The file is read on every
// call so edits apply to the next request without a restart.
type YAMLStore struct {
	path string
	settings
}

// NewYAMLStore creates a store backed by the file at path.
func NewYAMLStore(path string, opts ...Option) *YAMLStore {
	s := &YAMLStore{path: path, settings: defaultSettings("yamlstore")}
	for _, opt := range opts {
		opt(&s.settings)
	}
	return s
}

func (s *YAMLStore) load(ctx context.Context, collection string) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	start := time.Now()
	snap, err := ReadSnapshotFile(s.path)
	metrics.RecordStoreLoadLatency(collection, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError(collection)
		s.log.Error(ctx, "failed to read configuration",
			logger.String("collection", collection),
			logger.String("path", s.path),
			logger.Error(err))
		return model.Snapshot{}, fmt.Errorf("list %s: %w", collection, err)
	}
	return snap, nil
}

// ListSports implements Store.
func (s *YAMLStore) ListSports(ctx context.Context) ([]model.Sport, error) {
	snap, err := s.load(ctx, CollectionSports)
	return snap.Sports, err
}

// ListCategories implements Store.
func (s *YAMLStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	snap, err := s.load(ctx, CollectionCategories)
	return snap.Categories, err
}

// ListProducts implements Store.
func (s *YAMLStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	snap, err := s.load(ctx, CollectionProducts)
	return snap.Products, err
}

// ListQuestions implements Store.
func (s *YAMLStore) ListQuestions(ctx context.Context) ([]model.Question, error) {
	snap, err := s.load(ctx, CollectionQuestions)
	return snap.Questions, err
}

// ListRules implements Store.
func (s *YAMLStore) ListRules(ctx context.Context) ([]model.Rule, error) {
	snap, err := s.load(ctx, CollectionRules)
	return snap.Rules, err
}
