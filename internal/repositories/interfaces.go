package repositories

import (
	"context"

	"github.com/formlab/builder-service/internal/models"
)

// DraftRepository is the document store boundary: get/update-by-id semantics
// over the serialized question snapshot, keyed by opaque project id and
// builder kind. The engine never sees the transport behind it.
type DraftRepository interface {
	// Get returns the draft, or (nil, nil) when no draft exists yet for the
	// key. Errors are reserved for transport/storage failures.
	Get(ctx context.Context, projectID string, kind models.BuilderKind) (*models.Draft, error)

	// Save upserts the snapshot for the key. Last debounced write wins;
	// concurrent writers are not reconciled here.
	Save(ctx context.Context, projectID string, kind models.BuilderKind, questions []models.Question) error

	// Delete removes the draft row. Missing rows are not an error.
	Delete(ctx context.Context, projectID string, kind models.BuilderKind) error
}
