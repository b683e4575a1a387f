package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/helixir/medline-ingest-service/internal/domain"
	"github.com/helixir/medline-ingest-service/internal/observability"
	"github.com/helixir/medline-ingest-service/internal/repository"
)

// Attachment outcome labels for the attachments_stored_total metric.
const (
	attachOutcomeStored  = "stored"
	attachOutcomeLinked  = "linked"
	attachOutcomeSkipped = "skipped"
	attachOutcomeFailed  = "failed"
)

// Attacher links auxiliary files to stored citations. Files are addressed by
// the BLAKE3 digest of their contents and named after the PMID they belong
// to, so attaching the same bytes twice is a no-op.
type Attacher struct {
	attachments repository.AttachmentRepository
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// NewAttacher creates an attacher over the given repository.
func NewAttacher(attachments repository.AttachmentRepository, logger zerolog.Logger, metrics *observability.Metrics) *Attacher {
	return &Attacher{
		attachments: attachments,
		logger:      logger,
		metrics:     metrics,
	}
}

// Digest returns the hex BLAKE3 digest of a file body.
func Digest(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// AttachFile stores one file and links it to the citation its name points
// at; the base name up to the extension is the PMID. An already-linked
// digest is skipped unless force is set. Returns the digest of the stored
// file.
func (a *Attacher) AttachFile(ctx context.Context, filename string, force bool) (string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("could not read %s: %w", filename, err)
	}

	base := filepath.Base(filename)
	pmid := strings.TrimSuffix(base, filepath.Ext(base))
	if pmid == "" {
		return "", domain.NewValidationError("filename", "file name carries no PMID")
	}

	digest := Digest(content)
	logger := a.logger.With().Str("pmid", pmid).Str("digest", digest).Logger()

	if !force {
		if existing, err := a.attachments.GetByDigest(ctx, digest); err == nil {
			for _, linked := range existing.PMIDs {
				if linked == pmid {
					logger.Info().Str("file", base).Msg("already attached")
					a.metrics.AttachmentsStored.WithLabelValues(attachOutcomeSkipped).Inc()
					return digest, nil
				}
			}
		}
	}

	created, err := a.attachments.Put(ctx, &domain.Attachment{
		Digest:   digest,
		Filename: base,
		PMIDs:    []string{pmid},
		Content:  content,
	})
	if err != nil {
		a.metrics.AttachmentsStored.WithLabelValues(attachOutcomeFailed).Inc()
		return "", fmt.Errorf("failed to attach %s: %w", base, err)
	}

	if created {
		logger.Debug().Str("file", base).Msg("attachment stored")
		a.metrics.AttachmentsStored.WithLabelValues(attachOutcomeStored).Inc()
	} else {
		logger.Debug().Str("file", base).Msg("attachment linked")
		a.metrics.AttachmentsStored.WithLabelValues(attachOutcomeLinked).Inc()
	}

	return digest, nil
}

// AttachAll processes a list of files, continuing past per-file failures.
// Returns the digests attached per PMID.
func (a *Attacher) AttachAll(ctx context.Context, filenames []string, force bool) map[string][]string {
	results := make(map[string][]string)

	for _, filename := range filenames {
		digest, err := a.AttachFile(ctx, filename, force)
		if err != nil {
			a.logger.Error().Err(err).Str("file", filename).Msg("failed to attach file")
			continue
		}
		base := filepath.Base(filename)
		pmid := strings.TrimSuffix(base, filepath.Ext(base))
		results[pmid] = append(results[pmid], digest)
	}

	return results
}
