// Package store persists constraint overrides authored through the inspect API.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/rig"
)

// ErrNotFound is returned when no override exists.
var ErrNotFound = errors.New("override not found")

//go:embed schema.sql
var schema string

// Override is a stored constraint spec for one bone of one model.
type Override struct {
	Model     string          `json:"model"`
	Bone      string          `json:"bone"`
	Spec      constraint.Spec `json:"spec"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store is a SQLite-backed override repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces the override for a bone.
func (s *Store) Put(ctx context.Context, model, bone string, spec constraint.Spec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode spec: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO constraint_overrides (model, bone, spec_json, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (model, bone) DO UPDATE
        SET spec_json = excluded.spec_json, updated_at = excluded.updated_at
    `, model, bone, string(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put override %s/%s: %w", model, bone, err)
	}
	return nil
}

// Get returns the override for a bone.
func (s *Store) Get(ctx context.Context, model, bone string) (Override, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT model, bone, spec_json, updated_at
        FROM constraint_overrides
        WHERE model = ? AND bone = ?
    `, model, bone)

	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Override{}, fmt.Errorf("%w: %s/%s", ErrNotFound, model, bone)
	}
	return o, err
}

// List returns every override for a model ordered by bone name.
func (s *Store) List(ctx context.Context, model string) ([]Override, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT model, bone, spec_json, updated_at
        FROM constraint_overrides
        WHERE model = ?
        ORDER BY bone
    `, model)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Delete removes the override for a bone.
func (s *Store) Delete(ctx context.Context, model, bone string) error {
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM constraint_overrides WHERE model = ? AND bone = ?
    `, model, bone)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, model, bone)
	}
	return nil
}

// ApplyTo sets every stored override for the rig's model. Overrides naming
// bones the rig does not have are skipped. Call it from the rig's owner.
func (s *Store) ApplyTo(ctx context.Context, r *rig.Rig) (int, error) {
	overrides, err := s.List(ctx, r.Model)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, o := range overrides {
		if err := r.SetConstraint(o.Bone, o.Spec, false); err != nil {
			logger.Warn("skipping stored override",
				zap.String("model", o.Model),
				zap.String("bone", o.Bone),
				zap.Error(err),
			)
			continue
		}
		applied++
	}
	return applied, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOverride(row scanner) (Override, error) {
	var (
		o       Override
		spec    string
		updated string
	)
	if err := row.Scan(&o.Model, &o.Bone, &spec, &updated); err != nil {
		return Override{}, err
	}
	if err := json.Unmarshal([]byte(spec), &o.Spec); err != nil {
		return Override{}, fmt.Errorf("decode spec for %s/%s: %w", o.Model, o.Bone, err)
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return Override{}, fmt.Errorf("decode time for %s/%s: %w", o.Model, o.Bone, err)
	}
	o.UpdatedAt = t
	return o, nil
}
