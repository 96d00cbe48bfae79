// Package store persists input scenes. Trees are never stored; they are
// rebuilt from the scene on demand.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/inamate/bspview/internal/scene"
)

var (
	ErrNotFound        = errors.New("scene not found")
	ErrAlreadyExists   = errors.New("scene already exists")
	ErrVersionConflict = errors.New("scene version conflict")
)

// Summary is the listing form of a stored scene.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	Segments  int    `json:"segments"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Store keeps scene snapshots keyed by scene id.
//
// Put replaces a scene and bumps its version. When expected is non-zero it
// must equal the stored version, otherwise ErrVersionConflict is returned.
type Store interface {
	Create(ctx context.Context, s *scene.Scene) (*scene.Scene, error)
	Get(ctx context.Context, id string) (*scene.Scene, error)
	List(ctx context.Context) ([]Summary, error)
	Put(ctx context.Context, s *scene.Scene, expected int) (*scene.Scene, error)
	Delete(ctx context.Context, id string) error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)

const timeLayout = "2006-01-02T15:04:05Z"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func summarize(s *scene.Scene) Summary {
	return Summary{
		ID:        s.ID,
		Name:      s.Name,
		Version:   s.Version,
		Segments:  len(s.Segments),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
