package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

// Compile-time interface verification.
var _ CitationRepository = (*PgCitationRepository)(nil)

// PgCitationRepository is a PostgreSQL implementation of CitationRepository.
type PgCitationRepository struct {
	db DBTX
}

// NewPgCitationRepository creates a new PostgreSQL citation repository.
func NewPgCitationRepository(db DBTX) *PgCitationRepository {
	return &PgCitationRepository{db: db}
}

// citationColumns is the column list shared by every full-row select.
const citationColumns = `pmid, version, status, document, text_content,
		date_created, date_completed, date_revised, created_at, updated_at`

// Upsert inserts a new citation or replaces an existing one with the same PMID.
func (r *PgCitationRepository) Upsert(ctx context.Context, citation *domain.Citation) (*domain.Citation, error) {
	if citation == nil {
		return nil, domain.NewValidationError("citation", "citation cannot be nil")
	}
	if citation.PMID == "" {
		return nil, domain.NewValidationError("pmid", "PMID is required")
	}
	if len(citation.Document) == 0 {
		return nil, domain.NewValidationError("document", "document is required")
	}
	if citation.Version <= 0 {
		citation.Version = 1
	}

	query := `
		INSERT INTO citations (
			pmid, version, status, document, text_content,
			date_created, date_completed, date_revised,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $9
		)
		ON CONFLICT (pmid) DO UPDATE SET
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			document = EXCLUDED.document,
			text_content = EXCLUDED.text_content,
			date_created = EXCLUDED.date_created,
			date_completed = EXCLUDED.date_completed,
			date_revised = EXCLUDED.date_revised,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query,
		citation.PMID,
		citation.Version,
		citation.Status,
		citation.Document,
		citation.Text,
		citation.DateCreated,
		citation.DateCompleted,
		citation.DateRevised,
		now,
	).Scan(&citation.CreatedAt, &citation.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert citation: %w", err)
	}

	return citation, nil
}

// Get retrieves a citation by PMID, including the full document.
func (r *PgCitationRepository) Get(ctx context.Context, pmid string) (*domain.Citation, error) {
	if pmid == "" {
		return nil, domain.NewValidationError("pmid", "PMID is required")
	}

	query := `
		SELECT ` + citationColumns + `
		FROM citations
		WHERE pmid = $1`

	row := r.db.QueryRow(ctx, query, pmid)
	citation, err := scanCitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("citation", pmid)
		}
		return nil, fmt.Errorf("failed to get citation: %w", err)
	}

	return citation, nil
}

// Existing retrieves the update-policy metadata for the given PMIDs.
func (r *PgCitationRepository) Existing(ctx context.Context, pmids []string) (map[string]*domain.Citation, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	query := `
		SELECT pmid, version, status, text_content,
			date_created, date_completed, date_revised, created_at, updated_at
		FROM citations
		WHERE pmid = ANY($1)`

	rows, err := r.db.Query(ctx, query, pmids)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing citations: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]*domain.Citation)
	for rows.Next() {
		var c domain.Citation
		if err := rows.Scan(
			&c.PMID,
			&c.Version,
			&c.Status,
			&c.Text,
			&c.DateCreated,
			&c.DateCompleted,
			&c.DateRevised,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan citation metadata: %w", err)
		}
		existing[c.PMID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read existing citations: %w", err)
	}

	return existing, nil
}

// Delete removes a citation, its sections and its attachment links.
func (r *PgCitationRepository) Delete(ctx context.Context, pmid string) error {
	if pmid == "" {
		return domain.NewValidationError("pmid", "PMID is required")
	}

	result, err := r.db.Exec(ctx, `DELETE FROM citations WHERE pmid = $1`, pmid)
	if err != nil {
		return fmt.Errorf("failed to delete citation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("citation", pmid)
	}

	return nil
}

// ReplaceSections atomically replaces all text sections for a citation.
func (r *PgCitationRepository) ReplaceSections(ctx context.Context, pmid string, sections []domain.Section) error {
	if pmid == "" {
		return domain.NewValidationError("pmid", "PMID is required")
	}

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM citations WHERE pmid = $1)`, pmid).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check citation existence: %w", err)
	}
	if !exists {
		return domain.NewNotFoundError("citation", pmid)
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM sections WHERE pmid = $1`, pmid)
	for i, section := range sections {
		batch.Queue(
			`INSERT INTO sections (pmid, seq, name, content) VALUES ($1, $2, $3, $4)`,
			pmid, i+1, section.Name, section.Content,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to replace sections: %w", err)
		}
	}

	return nil
}

// GetSections retrieves a citation's text sections in sequence order.
func (r *PgCitationRepository) GetSections(ctx context.Context, pmid string) ([]domain.Section, error) {
	if pmid == "" {
		return nil, domain.NewValidationError("pmid", "PMID is required")
	}

	query := `
		SELECT pmid, seq, name, content
		FROM sections
		WHERE pmid = $1
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, pmid)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	sections := make([]domain.Section, 0)
	for rows.Next() {
		var s domain.Section
		if err := rows.Scan(&s.PMID, &s.Seq, &s.Name, &s.Content); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sections: %w", err)
	}

	return sections, nil
}

// List retrieves citations matching the filter criteria, newest first.
func (r *PgCitationRepository) List(ctx context.Context, filter CitationFilter) ([]*domain.Citation, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM citations %s`, whereClause)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count citations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+citationColumns+`
		FROM citations
		%s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list citations: %w", err)
	}
	defer rows.Close()

	citations := make([]*domain.Citation, 0)
	for rows.Next() {
		citation, err := scanCitation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan citation: %w", err)
		}
		citations = append(citations, citation)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read citations: %w", err)
	}

	return citations, total, nil
}

// scanCitation scans a full citation row from either pgx.Row or pgx.Rows.
func scanCitation(row pgx.Row) (*domain.Citation, error) {
	var c domain.Citation
	err := row.Scan(
		&c.PMID,
		&c.Version,
		&c.Status,
		&c.Document,
		&c.Text,
		&c.DateCreated,
		&c.DateCompleted,
		&c.DateRevised,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
