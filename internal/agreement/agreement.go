// Package agreement computes inter-rater agreement statistics over
// categorical labels: rating-matrix construction, observed and expected
// agreement, and the Cohen and Fleiss kappa coefficients. It shares no
// logic with the citation transform; annotation quality checks use it on
// their own label sets.
package agreement

import (
	"sort"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

// RatingMatrix holds per-item category counts for a fixed number of raters.
// Counts[i][j] is how many raters assigned item i to Categories[j]; every row
// sums to Raters.
type RatingMatrix struct {
	Categories []string
	Counts     [][]int
	Raters     int
}

// NewRatingMatrix builds a rating matrix from per-item label slices, one
// label per rater. Every item must carry the same number of labels and at
// least two raters are required. The category set is discovered from the
// labels and ordered lexicographically.
func NewRatingMatrix(items [][]string) (*RatingMatrix, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError("items", "at least one rated item is required")
	}
	raters := len(items[0])
	if raters < 2 {
		return nil, domain.NewValidationError("items", "at least two raters are required")
	}

	seen := make(map[string]bool)
	for _, labels := range items {
		if len(labels) != raters {
			return nil, domain.NewValidationError("items", "every item must carry one label per rater")
		}
		for _, label := range labels {
			seen[label] = true
		}
	}

	categories := make([]string, 0, len(seen))
	for label := range seen {
		categories = append(categories, label)
	}
	sort.Strings(categories)

	index := make(map[string]int, len(categories))
	for j, label := range categories {
		index[label] = j
	}

	counts := make([][]int, len(items))
	for i, labels := range items {
		row := make([]int, len(categories))
		for _, label := range labels {
			row[index[label]]++
		}
		counts[i] = row
	}

	return &RatingMatrix{
		Categories: categories,
		Counts:     counts,
		Raters:     raters,
	}, nil
}

// ObservedAgreement returns the mean per-item proportion of agreeing rater
// pairs.
func (m *RatingMatrix) ObservedAgreement() float64 {
	n := float64(m.Raters)
	total := 0.0
	for _, row := range m.Counts {
		pairSum := 0.0
		for _, count := range row {
			pairSum += float64(count) * float64(count)
		}
		total += (pairSum - n) / (n * (n - 1))
	}
	return total / float64(len(m.Counts))
}

// ExpectedAgreement returns the agreement expected by chance from the
// marginal category proportions.
func (m *RatingMatrix) ExpectedAgreement() float64 {
	assignments := float64(len(m.Counts) * m.Raters)
	expected := 0.0
	for j := range m.Categories {
		columnSum := 0
		for _, row := range m.Counts {
			columnSum += row[j]
		}
		p := float64(columnSum) / assignments
		expected += p * p
	}
	return expected
}

// FleissKappa returns the Fleiss kappa coefficient for the matrix. A matrix
// whose expected agreement is already perfect yields 1.
func (m *RatingMatrix) FleissKappa() float64 {
	observed := m.ObservedAgreement()
	expected := m.ExpectedAgreement()
	if expected == 1 {
		return 1
	}
	return (observed - expected) / (1 - expected)
}

// CohenKappa returns the Cohen kappa coefficient for two raters' labels over
// the same items, along with the observed and expected agreement proportions.
func CohenKappa(a, b []string) (kappa, observed, expected float64, err error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, 0, 0, domain.NewValidationError("labels", "both raters must label the same non-empty item set")
	}

	n := float64(len(a))
	agreements := 0
	marginalA := make(map[string]int)
	marginalB := make(map[string]int)
	for i := range a {
		if a[i] == b[i] {
			agreements++
		}
		marginalA[a[i]]++
		marginalB[b[i]]++
	}

	observed = float64(agreements) / n
	for label, countA := range marginalA {
		expected += (float64(countA) / n) * (float64(marginalB[label]) / n)
	}

	if expected == 1 {
		return 1, observed, expected, nil
	}
	return (observed - expected) / (1 - expected), observed, expected, nil
}
