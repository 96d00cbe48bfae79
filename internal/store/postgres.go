package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/bspview/internal/scene"
)

// Postgres stores each scene as one JSONB snapshot row.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const uniqueViolation = "23505"

func (p *Postgres) Create(ctx context.Context, s *scene.Scene) (*scene.Scene, error) {
	stored := s.Clone()
	stored.Version = 1

	doc, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}

	var created, updated time.Time
	err = p.pool.QueryRow(ctx,
		`INSERT INTO scenes (id, name, version, document)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		stored.ID, stored.Name, stored.Version, doc,
	).Scan(&created, &updated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert scene: %w", err)
	}

	stamp(stored, created, updated)
	return stored, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*scene.Scene, error) {
	var (
		doc              []byte
		version          int
		created, updated time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT document, version, created_at, updated_at FROM scenes WHERE id = $1`, id,
	).Scan(&doc, &version, &created, &updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get scene: %w", err)
	}

	var s scene.Scene
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", id, err)
	}
	s.Version = version
	stamp(&s, created, updated)
	return &s, nil
}

func (p *Postgres) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, version, jsonb_array_length(COALESCE(document->'segments', '[]'::jsonb)),
		        created_at, updated_at
		 FROM scenes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum              Summary
			created, updated time.Time
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Version, &sum.Segments, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		sum.CreatedAt = created.UTC().Format(timeLayout)
		sum.UpdatedAt = updated.UTC().Format(timeLayout)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	return out, nil
}

func (p *Postgres) Put(ctx context.Context, s *scene.Scene, expected int) (*scene.Scene, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var current int
	err = tx.QueryRow(ctx, `SELECT version FROM scenes WHERE id = $1 FOR UPDATE`, s.ID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock scene: %w", err)
	}
	if expected != 0 && expected != current {
		return nil, ErrVersionConflict
	}

	stored := s.Clone()
	stored.Version = current + 1
	doc, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}

	var created, updated time.Time
	err = tx.QueryRow(ctx,
		`UPDATE scenes SET name = $2, version = $3, document = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		stored.ID, stored.Name, stored.Version, doc,
	).Scan(&created, &updated)
	if err != nil {
		return nil, fmt.Errorf("update scene: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	stamp(stored, created, updated)
	return stored, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM scenes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func stamp(s *scene.Scene, created, updated time.Time) {
	s.CreatedAt = created.UTC().Format(timeLayout)
	s.UpdatedAt = updated.UTC().Format(timeLayout)
}
