package repository

import (
	"context"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

// AttachmentRepository handles content-addressed files linked to citations.
// Files are keyed by the hex digest of their contents, so storing the same
// bytes twice never duplicates the body; only the citation links grow.
type AttachmentRepository interface {
	// Put stores an attachment body and links it to the citations named in
	// attachment.PMIDs. If the digest already exists the body is left alone
	// and only missing links are added. Reports whether the body was newly
	// stored.
	// Returns domain.ErrInvalidInput if the digest, filename or content is
	// missing, and domain.ErrNotFound if a linked citation does not exist.
	Put(ctx context.Context, attachment *domain.Attachment) (bool, error)

	// GetByDigest retrieves an attachment and its linked PMIDs by digest.
	// Returns domain.ErrNotFound if no matching attachment exists.
	GetByDigest(ctx context.Context, digest string) (*domain.Attachment, error)

	// ListForCitation retrieves metadata for all attachments linked to a
	// citation, without the file bodies. Returns an empty slice if the
	// citation has no attachments.
	ListForCitation(ctx context.Context, pmid string) ([]*domain.Attachment, error)

	// Unlink removes the link between an attachment and a citation; the body
	// is removed once no links remain.
	// Returns domain.ErrNotFound if the link does not exist.
	Unlink(ctx context.Context, digest, pmid string) error
}
