package store

import (
	"time"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

// Default staleness policy bounds.
const (
	// DefaultMinAge is how recently a citation may have been stored before
	// any refresh is considered.
	DefaultMinAge = 7 * 24 * time.Hour

	// matureAge separates freshly published records from settled ones.
	matureAge = 365 * 24 * time.Hour

	// ancientAge is the cutoff past which records are never refreshed.
	ancientAge = 10 * 365 * 24 * time.Hour
)

// UpdatePolicy decides which stored citations are stale enough to refetch.
type UpdatePolicy struct {
	// Update enables refreshing existing citations at all; when false every
	// stored PMID is skipped.
	Update bool

	// Force refreshes every existing citation regardless of staleness.
	// Only meaningful together with Update.
	Force bool

	// MinAge is the minimum time since the local store last wrote the
	// citation before a refresh is considered. Zero means DefaultMinAge.
	MinAge time.Duration
}

// minAge returns the effective minimum age.
func (p UpdatePolicy) minAge() time.Duration {
	if p.MinAge <= 0 {
		return DefaultMinAge
	}
	return p.MinAge
}

// NeedsUpdate reports whether a stored citation is stale. The rules, in
// order:
//
//   - stored less than MinAge ago: never stale
//   - status In-Data-Review or In-Process: stale, the NLM is still editing it
//   - created at the NLM one to ten years ago: stale unless it carries both
//     DateRevised and DateCompleted
//   - created within the last year: stale unless it carries DateCompleted
//   - older than ten years: never stale
func (p UpdatePolicy) NeedsUpdate(citation *domain.Citation, now time.Time) bool {
	if now.Sub(citation.CreatedAt) < p.minAge() {
		return false
	}

	if citation.Status == domain.StatusInDataReview || citation.Status == domain.StatusInProcess {
		return true
	}

	if citation.DateCreated == nil {
		return citation.DateCompleted == nil
	}

	age := now.Sub(*citation.DateCreated)
	if age > matureAge {
		if age < ancientAge {
			return citation.DateRevised == nil || citation.DateCompleted == nil
		}
		return false
	}

	return citation.DateCompleted == nil
}

// Plan splits one batch of requested PMIDs into the PMIDs to fetch and the
// stored citations those fetches will replace. With Update off, only unknown
// PMIDs are fetched. With Force, every requested PMID is fetched.
func (p UpdatePolicy) Plan(pmids []string, existing map[string]*domain.Citation, now time.Time) ([]string, map[string]*domain.Citation) {
	replacing := make(map[string]*domain.Citation)
	fetch := make([]string, 0, len(pmids))

	for _, pmid := range pmids {
		old, stored := existing[pmid]
		switch {
		case !stored:
			fetch = append(fetch, pmid)
		case !p.Update:
			// skip
		case p.Force || p.NeedsUpdate(old, now):
			fetch = append(fetch, pmid)
			replacing[pmid] = old
		}
	}

	return fetch, replacing
}
