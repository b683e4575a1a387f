package repository

import (
	"context"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

// CitationRepository handles stored citation documents and their text sections.
// Citations are keyed by PMID; storing a PMID that already exists replaces the
// document, its extracted fields and its text sections as one unit.
type CitationRepository interface {
	// Upsert inserts a new citation or replaces an existing one with the same PMID.
	// Returns the stored citation with its database timestamps populated.
	// Returns domain.ErrInvalidInput if the citation has no PMID or document.
	Upsert(ctx context.Context, citation *domain.Citation) (*domain.Citation, error)

	// Get retrieves a citation by PMID, including the full document.
	// Returns domain.ErrNotFound if no matching citation exists.
	Get(ctx context.Context, pmid string) (*domain.Citation, error)

	// Existing retrieves the update-policy metadata for the given PMIDs:
	// status, the NLM date stamps, the stored text and the local timestamps.
	// The Document field is left nil to keep the result cheap for large batches.
	// PMIDs not present in the store are absent from the returned map.
	// Returns nil, nil if the input slice is empty.
	Existing(ctx context.Context, pmids []string) (map[string]*domain.Citation, error)

	// Delete removes a citation, its sections and its attachment links.
	// Returns domain.ErrNotFound if the citation does not exist.
	Delete(ctx context.Context, pmid string) error

	// ReplaceSections atomically replaces all text sections for a citation.
	// Sections are stored in the order given; Seq values are assigned from
	// the slice positions.
	// Returns domain.ErrNotFound if the citation does not exist.
	ReplaceSections(ctx context.Context, pmid string, sections []domain.Section) error

	// GetSections retrieves a citation's text sections in sequence order.
	// Returns an empty slice if the citation has no sections.
	GetSections(ctx context.Context, pmid string) ([]domain.Section, error)

	// List retrieves citations matching the filter criteria, newest first.
	// Returns the matching citations and total count for pagination.
	// The total count reflects all matching records regardless of limit/offset.
	List(ctx context.Context, filter CitationFilter) ([]*domain.Citation, int64, error)
}

// CitationFilter specifies criteria for listing citations.
type CitationFilter struct {
	// Status filters to citations with a specific MedlineCitation status (optional).
	Status *string

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *CitationFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
