package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

// Compile-time interface verification.
var _ AttachmentRepository = (*PgAttachmentRepository)(nil)

// PgAttachmentRepository is a PostgreSQL implementation of AttachmentRepository.
type PgAttachmentRepository struct {
	db DBTX
}

// NewPgAttachmentRepository creates a new PostgreSQL attachment repository.
func NewPgAttachmentRepository(db DBTX) *PgAttachmentRepository {
	return &PgAttachmentRepository{db: db}
}

// Put stores an attachment body and links it to its citations.
func (r *PgAttachmentRepository) Put(ctx context.Context, attachment *domain.Attachment) (bool, error) {
	if attachment == nil {
		return false, domain.NewValidationError("attachment", "attachment cannot be nil")
	}
	if attachment.Digest == "" {
		return false, domain.NewValidationError("digest", "digest is required")
	}
	if attachment.Filename == "" {
		return false, domain.NewValidationError("filename", "filename is required")
	}
	if len(attachment.Content) == 0 {
		return false, domain.NewValidationError("content", "content is required")
	}
	if len(attachment.PMIDs) == 0 {
		return false, domain.NewValidationError("pmids", "at least one PMID is required")
	}

	query := `
		INSERT INTO attachments (digest, filename, content, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (digest) DO NOTHING`

	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query, attachment.Digest, attachment.Filename, attachment.Content, now)
	if err != nil {
		return false, fmt.Errorf("failed to store attachment: %w", err)
	}
	created := result.RowsAffected() > 0
	if created {
		attachment.CreatedAt = now
	}

	linkQuery := `
		INSERT INTO citation_attachments (digest, pmid)
		VALUES ($1, $2)
		ON CONFLICT (digest, pmid) DO NOTHING`

	for _, pmid := range attachment.PMIDs {
		if _, err := r.db.Exec(ctx, linkQuery, attachment.Digest, pmid); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return created, domain.NewNotFoundError("citation", pmid)
			}
			return created, fmt.Errorf("failed to link attachment: %w", err)
		}
	}

	return created, nil
}

// GetByDigest retrieves an attachment and its linked PMIDs by digest.
func (r *PgAttachmentRepository) GetByDigest(ctx context.Context, digest string) (*domain.Attachment, error) {
	if digest == "" {
		return nil, domain.NewValidationError("digest", "digest is required")
	}

	query := `
		SELECT a.digest, a.filename, a.content, a.created_at,
			COALESCE(array_agg(ca.pmid ORDER BY ca.pmid) FILTER (WHERE ca.pmid IS NOT NULL), '{}')
		FROM attachments a
		LEFT JOIN citation_attachments ca ON ca.digest = a.digest
		WHERE a.digest = $1
		GROUP BY a.digest`

	var a domain.Attachment
	err := r.db.QueryRow(ctx, query, digest).Scan(
		&a.Digest,
		&a.Filename,
		&a.Content,
		&a.CreatedAt,
		&a.PMIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("attachment", digest)
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return &a, nil
}

// ListForCitation retrieves metadata for all attachments linked to a citation.
func (r *PgAttachmentRepository) ListForCitation(ctx context.Context, pmid string) ([]*domain.Attachment, error) {
	if pmid == "" {
		return nil, domain.NewValidationError("pmid", "PMID is required")
	}

	query := `
		SELECT a.digest, a.filename, a.created_at
		FROM attachments a
		INNER JOIN citation_attachments ca ON ca.digest = a.digest
		WHERE ca.pmid = $1
		ORDER BY a.filename`

	rows, err := r.db.Query(ctx, query, pmid)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	attachments := make([]*domain.Attachment, 0)
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.Digest, &a.Filename, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		a.PMIDs = []string{pmid}
		attachments = append(attachments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attachments: %w", err)
	}

	return attachments, nil
}

// Unlink removes the link between an attachment and a citation.
func (r *PgAttachmentRepository) Unlink(ctx context.Context, digest, pmid string) error {
	if digest == "" {
		return domain.NewValidationError("digest", "digest is required")
	}
	if pmid == "" {
		return domain.NewValidationError("pmid", "PMID is required")
	}

	result, err := r.db.Exec(ctx,
		`DELETE FROM citation_attachments WHERE digest = $1 AND pmid = $2`, digest, pmid)
	if err != nil {
		return fmt.Errorf("failed to unlink attachment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("attachment link", fmt.Sprintf("%s:%s", digest, pmid))
	}

	// Drop the body once nothing references it.
	_, err = r.db.Exec(ctx, `
		DELETE FROM attachments
		WHERE digest = $1
		AND NOT EXISTS (SELECT 1 FROM citation_attachments WHERE digest = $1)`, digest)
	if err != nil {
		return fmt.Errorf("failed to prune attachment body: %w", err)
	}

	return nil
}
