package interfaces

import (
	"context"

	"github.com/ternarybob/perquire/internal/models"
)

// ContentFetcher retrieves raw documents from source locations, restricted to
// the content regions matched by a structural selector. A failing source is
// non-fatal to the batch: implementations log it, skip it, and return
// whatever succeeded, possibly an empty slice. One attempt per source, no
// retries.
type ContentFetcher interface {
	// Fetch loads every location and returns one document per source that
	// yielded usable content. Documents with empty text are excluded.
	Fetch(ctx context.Context, locations []string, contentSelector string) ([]*models.Document, error)
}
