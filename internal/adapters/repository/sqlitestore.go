package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/pkg/logger"
	"github.com/okian/thehub/pkg/metrics"
)

// SQLiteStore serves configuration from a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	settings
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrUnavailable)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrUnavailable, err)
	}
	s, err := NewSQLiteStore(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database handle.
func NewSQLiteStore(db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("%w: apply sqlite pragma %q: %w", ErrUnavailable, stmt, err)
		}
	}
	s := &SQLiteStore{db: db, settings: defaultSettings("sqlitestore")}
	for _, opt := range opts {
		opt(&s.settings)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates or upgrades the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	applied, err := migrate(ctx, s.db)
	for _, name := range applied {
		s.log.Info(ctx, "applied migration", logger.String("name", name))
	}
	return err
}

// Import upserts every record of snap in a single transaction. Records
// without an id get a generated one. Rows not present in snap are kept.
func (s *SQLiteStore) Import(ctx context.Context, snap model.Snapshot) error {
	applyDefaults(&snap)
	if err := validate(snap); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, sp := range snap.Sports {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sports (id, position, name, description) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET position = excluded.position, name = excluded.name, description = excluded.description`,
			s.id(sp.ID), i, sp.Name, sp.Description); err != nil {
			return fmt.Errorf("import sport %q: %w", sp.ID, err)
		}
	}

	for i, c := range snap.Categories {
		sportIDs, err := encodeJSON(c.SportIDs)
		if err != nil {
			return fmt.Errorf("import category %q: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO categories (id, position, name, description, sport_ids) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET position = excluded.position, name = excluded.name,
				description = excluded.description, sport_ids = excluded.sport_ids`,
			s.id(c.ID), i, c.Name, c.Description, sportIDs); err != nil {
			return fmt.Errorf("import category %q: %w", c.ID, err)
		}
	}

	for i, p := range snap.Products {
		categoryIDs, err := encodeJSON(p.CategoryIDs)
		if err != nil {
			return fmt.Errorf("import product %q: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO products (id, position, shopify_gid, name, description, category_ids, priority, amount_per_unit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET position = excluded.position, shopify_gid = excluded.shopify_gid,
				name = excluded.name, description = excluded.description, category_ids = excluded.category_ids,
				priority = excluded.priority, amount_per_unit = excluded.amount_per_unit`,
			s.id(p.ID), i, p.ShopifyGID, p.Name, p.Description, categoryIDs, p.Priority, p.AmountPerUnit); err != nil {
			return fmt.Errorf("import product %q: %w", p.ID, err)
		}
	}

	for i, q := range snap.Questions {
		cols, err := encodeAll(q.Options, q.Sports, q.TimeComponents)
		if err != nil {
			return fmt.Errorf("import question %q: %w", q.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO questions (id, position, text, key, type, options, unit, sports, time_components, for_all_sports)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET position = excluded.position, text = excluded.text, key = excluded.key,
				type = excluded.type, options = excluded.options, unit = excluded.unit, sports = excluded.sports,
				time_components = excluded.time_components, for_all_sports = excluded.for_all_sports`,
			s.id(q.ID), i, q.Text, q.Key, string(q.Type), cols[0], q.Unit, cols[1], cols[2], q.ForAllSports); err != nil {
			return fmt.Errorf("import question %q: %w", q.ID, err)
		}
	}

	for i, r := range snap.Rules {
		modifiers, err := encodeJSON(r.Modifiers)
		if err != nil {
			return fmt.Errorf("import rule %q: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO rules (id, position, category_id, base_question_key, base_question_type, base_multiplier, logic, modifiers)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET position = excluded.position, category_id = excluded.category_id,
				base_question_key = excluded.base_question_key, base_question_type = excluded.base_question_type,
				base_multiplier = excluded.base_multiplier, logic = excluded.logic, modifiers = excluded.modifiers`,
			s.id(r.ID), i, r.CategoryID, r.BaseQuestionKey, string(r.BaseQuestionType), r.BaseMultiplier, string(r.Logic), modifiers); err != nil {
			return fmt.Errorf("import rule %q: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	s.log.Info(ctx, "configuration imported",
		logger.Int("sports", len(snap.Sports)),
		logger.Int("categories", len(snap.Categories)),
		logger.Int("products", len(snap.Products)),
		logger.Int("questions", len(snap.Questions)),
		logger.Int("rules", len(snap.Rules)))
	return nil
}

func (s *SQLiteStore) id(id string) string {
	if strings.TrimSpace(id) == "" {
		return s.newID()
	}
	return id
}

// query runs q and hands each row to scan, recording latency and failures
// under collection.
func (s *SQLiteStore) query(ctx context.Context, collection, q string, scan func(*sql.Rows) error) error {
	start := time.Now()
	err := func() error {
		rows, err := s.db.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			if err := scan(rows); err != nil {
				return err
			}
		}
		return rows.Err()
	}()
	metrics.RecordStoreLoadLatency(collection, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError(collection)
		s.log.Error(ctx, "failed to query configuration", logger.String("collection", collection), logger.Error(err))
		return fmt.Errorf("%w: list %s: %w", ErrUnavailable, collection, err)
	}
	return nil
}

// ListSports implements Store.
func (s *SQLiteStore) ListSports(ctx context.Context) ([]model.Sport, error) {
	out := []model.Sport{}
	err := s.query(ctx, CollectionSports, `SELECT id, name, description FROM sports ORDER BY position, id`,
		func(rows *sql.Rows) error {
			var sp model.Sport
			if err := rows.Scan(&sp.ID, &sp.Name, &sp.Description); err != nil {
				return err
			}
			out = append(out, sp)
			return nil
		})
	return out, err
}

// ListCategories implements Store.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	out := []model.Category{}
	err := s.query(ctx, CollectionCategories, `SELECT id, name, description, sport_ids FROM categories ORDER BY position, id`,
		func(rows *sql.Rows) error {
			var c model.Category
			var sportIDs string
			if err := rows.Scan(&c.ID, &c.Name, &c.Description, &sportIDs); err != nil {
				return err
			}
			if err := decodeJSON(sportIDs, &c.SportIDs); err != nil {
				return fmt.Errorf("category %q sport_ids: %w", c.ID, err)
			}
			out = append(out, c)
			return nil
		})
	return out, err
}

// ListProducts implements Store.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	out := []model.Product{}
	err := s.query(ctx, CollectionProducts,
		`SELECT id, shopify_gid, name, description, category_ids, priority, amount_per_unit FROM products ORDER BY position, id`,
		func(rows *sql.Rows) error {
			var p model.Product
			var categoryIDs string
			if err := rows.Scan(&p.ID, &p.ShopifyGID, &p.Name, &p.Description, &categoryIDs, &p.Priority, &p.AmountPerUnit); err != nil {
				return err
			}
			if err := decodeJSON(categoryIDs, &p.CategoryIDs); err != nil {
				return fmt.Errorf("product %q category_ids: %w", p.ID, err)
			}
			out = append(out, p)
			return nil
		})
	return out, err
}

// ListQuestions implements Store.
func (s *SQLiteStore) ListQuestions(ctx context.Context) ([]model.Question, error) {
	out := []model.Question{}
	err := s.query(ctx, CollectionQuestions,
		`SELECT id, text, key, type, options, unit, sports, time_components, for_all_sports FROM questions ORDER BY position, id`,
		func(rows *sql.Rows) error {
			var q model.Question
			var qt, options, sports, components string
			if err := rows.Scan(&q.ID, &q.Text, &q.Key, &qt, &options, &q.Unit, &sports, &components, &q.ForAllSports); err != nil {
				return err
			}
			q.Type = model.QuestionType(qt)
			if err := decodeJSON(options, &q.Options); err != nil {
				return fmt.Errorf("question %q options: %w", q.ID, err)
			}
			if err := decodeJSON(sports, &q.Sports); err != nil {
				return fmt.Errorf("question %q sports: %w", q.ID, err)
			}
			if err := decodeJSON(components, &q.TimeComponents); err != nil {
				return fmt.Errorf("question %q time_components: %w", q.ID, err)
			}
			out = append(out, q)
			return nil
		})
	return out, err
}

// ListRules implements Store.
func (s *SQLiteStore) ListRules(ctx context.Context) ([]model.Rule, error) {
	out := []model.Rule{}
	err := s.query(ctx, CollectionRules,
		`SELECT id, category_id, base_question_key, base_question_type, base_multiplier, logic, modifiers FROM rules ORDER BY position, id`,
		func(rows *sql.Rows) error {
			var r model.Rule
			var qt, logic, modifiers string
			if err := rows.Scan(&r.ID, &r.CategoryID, &r.BaseQuestionKey, &qt, &r.BaseMultiplier, &logic, &modifiers); err != nil {
				return err
			}
			r.BaseQuestionType = model.QuestionType(qt)
			r.Logic = model.Logic(logic)
			if err := decodeJSON(modifiers, &r.Modifiers); err != nil {
				return fmt.Errorf("rule %q modifiers: %w", r.ID, err)
			}
			out = append(out, r)
			return nil
		})
	return out, err
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeAll(vs ...any) ([]string, error) {
	out := make([]string, len(vs))
	for i, v := range vs {
		s, err := encodeJSON(v)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func decodeJSON(s string, v any) error {
	if strings.TrimSpace(s) == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
