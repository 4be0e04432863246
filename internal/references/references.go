// Package references resolves polymorphic (kind, id) owners used by
// attachments and calendar events.
package references

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

// ExistsFunc reports whether the entity with id exists.
type ExistsFunc func(ctx context.Context, id uuid.UUID) (bool, error)

// Registry maps each entity kind to its loader.
type Registry struct {
	loaders map[enums.EntityKind]ExistsFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: map[enums.EntityKind]ExistsFunc{}}
}

// NewGormRegistry registers a table lookup for every entity kind.
func NewGormRegistry(db *gorm.DB) *Registry {
	base := repo.NewBase(db)
	tables := map[enums.EntityKind]any{
		enums.EntityKindClient:       &models.Client{},
		enums.EntityKindProject:      &models.Project{},
		enums.EntityKindLicense:      &models.License{},
		enums.EntityKindAvcb:         &models.Avcb{},
		enums.EntityKindConditional:  &models.Conditional{},
		enums.EntityKindExecution:    &models.ConditionalExecution{},
		enums.EntityKindProcess:      &models.Process{},
		enums.EntityKindWasteHandler: &models.WasteHandler{},
	}
	r := NewRegistry()
	for kind, model := range tables {
		model := model
		r.Register(kind, func(ctx context.Context, id uuid.UUID) (bool, error) {
			return base.Exists(ctx, model, id)
		})
	}
	return r
}

// Register sets the loader for kind, replacing any previous one.
func (r *Registry) Register(kind enums.EntityKind, fn ExistsFunc) {
	r.loaders[kind] = fn
}

// Resolve returns nil when ref points at an existing record.
func (r *Registry) Resolve(ctx context.Context, ref models.EntityRef) error {
	if !ref.Kind.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid entity kind %q", ref.Kind)
	}
	if ref.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity id is required")
	}
	load, ok := r.loaders[ref.Kind]
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "entity kind %q cannot own attachments", ref.Kind)
	}
	exists, err := load(ctx, ref.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve entity reference")
	}
	if !exists {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %s not found", ref.Kind, ref.ID)
	}
	return nil
}
