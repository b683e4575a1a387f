package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

func datePtr(year, month, day int) *time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestUpdatePolicy_NeedsUpdate(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	policy := UpdatePolicy{Update: true}

	tests := []struct {
		name     string
		citation domain.Citation
		want     bool
	}{
		{
			name: "stored less than a week ago is never stale",
			citation: domain.Citation{
				Status:    domain.StatusInProcess,
				CreatedAt: now.Add(-24 * time.Hour),
			},
			want: false,
		},
		{
			name: "in-data-review is always stale",
			citation: domain.Citation{
				Status:    domain.StatusInDataReview,
				CreatedAt: now.Add(-30 * 24 * time.Hour),
			},
			want: true,
		},
		{
			name: "in-process is always stale",
			citation: domain.Citation{
				Status:    domain.StatusInProcess,
				CreatedAt: now.Add(-30 * 24 * time.Hour),
			},
			want: true,
		},
		{
			name: "recent record with completion stamp is settled",
			citation: domain.Citation{
				Status:        "MEDLINE",
				CreatedAt:     now.Add(-30 * 24 * time.Hour),
				DateCreated:   datePtr(2026, 2, 1),
				DateCompleted: datePtr(2026, 3, 1),
			},
			want: false,
		},
		{
			name: "recent record without completion stamp is stale",
			citation: domain.Citation{
				Status:      "MEDLINE",
				CreatedAt:   now.Add(-30 * 24 * time.Hour),
				DateCreated: datePtr(2026, 2, 1),
			},
			want: true,
		},
		{
			name: "mature record with both stamps is settled",
			citation: domain.Citation{
				Status:        "MEDLINE",
				CreatedAt:     now.Add(-30 * 24 * time.Hour),
				DateCreated:   datePtr(2021, 6, 1),
				DateCompleted: datePtr(2021, 7, 1),
				DateRevised:   datePtr(2023, 1, 1),
			},
			want: false,
		},
		{
			name: "mature record missing revision stamp is stale",
			citation: domain.Citation{
				Status:        "MEDLINE",
				CreatedAt:     now.Add(-30 * 24 * time.Hour),
				DateCreated:   datePtr(2021, 6, 1),
				DateCompleted: datePtr(2021, 7, 1),
			},
			want: true,
		},
		{
			name: "mature record missing completion stamp is stale",
			citation: domain.Citation{
				Status:      "MEDLINE",
				CreatedAt:   now.Add(-30 * 24 * time.Hour),
				DateCreated: datePtr(2021, 6, 1),
				DateRevised: datePtr(2023, 1, 1),
			},
			want: true,
		},
		{
			name: "ancient record is never stale",
			citation: domain.Citation{
				Status:      "MEDLINE",
				CreatedAt:   now.Add(-30 * 24 * time.Hour),
				DateCreated: datePtr(1998, 6, 1),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.NeedsUpdate(&tt.citation, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdatePolicy_Plan(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	stale := &domain.Citation{
		PMID:      "111",
		Status:    domain.StatusInProcess,
		CreatedAt: now.Add(-30 * 24 * time.Hour),
	}
	settled := &domain.Citation{
		PMID:          "222",
		Status:        "MEDLINE",
		CreatedAt:     now.Add(-30 * 24 * time.Hour),
		DateCreated:   datePtr(2026, 2, 1),
		DateCompleted: datePtr(2026, 3, 1),
	}
	existing := map[string]*domain.Citation{"111": stale, "222": settled}
	pmids := []string{"111", "222", "333"}

	t.Run("updates disabled fetches only unknown PMIDs", func(t *testing.T) {
		fetch, replacing := UpdatePolicy{}.Plan(pmids, existing, now)
		assert.Equal(t, []string{"333"}, fetch)
		assert.Empty(t, replacing)
	})

	t.Run("updates enabled fetches unknown and stale PMIDs", func(t *testing.T) {
		fetch, replacing := UpdatePolicy{Update: true}.Plan(pmids, existing, now)
		assert.Equal(t, []string{"111", "333"}, fetch)
		assert.Len(t, replacing, 1)
		assert.Contains(t, replacing, "111")
	})

	t.Run("force fetches everything", func(t *testing.T) {
		fetch, replacing := UpdatePolicy{Update: true, Force: true}.Plan(pmids, existing, now)
		assert.Equal(t, []string{"111", "222", "333"}, fetch)
		assert.Len(t, replacing, 2)
	})

	t.Run("preserves request order", func(t *testing.T) {
		fetch, _ := UpdatePolicy{Update: true, Force: true}.Plan([]string{"333", "111"}, existing, now)
		assert.Equal(t, []string{"333", "111"}, fetch)
	})
}
