package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/medline-ingest-service/internal/domain"
	"github.com/helixir/medline-ingest-service/internal/observability"
)

// fakeAttachmentRepo is an in-memory AttachmentRepository.
type fakeAttachmentRepo struct {
	byDigest map[string]*domain.Attachment
	putCalls int
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{byDigest: make(map[string]*domain.Attachment)}
}

func (f *fakeAttachmentRepo) Put(_ context.Context, attachment *domain.Attachment) (bool, error) {
	f.putCalls++
	existing, ok := f.byDigest[attachment.Digest]
	if !ok {
		stored := *attachment
		f.byDigest[attachment.Digest] = &stored
		return true, nil
	}
	for _, pmid := range attachment.PMIDs {
		linked := false
		for _, have := range existing.PMIDs {
			if have == pmid {
				linked = true
				break
			}
		}
		if !linked {
			existing.PMIDs = append(existing.PMIDs, pmid)
		}
	}
	return false, nil
}

func (f *fakeAttachmentRepo) GetByDigest(_ context.Context, digest string) (*domain.Attachment, error) {
	attachment, ok := f.byDigest[digest]
	if !ok {
		return nil, domain.NewNotFoundError("attachment", digest)
	}
	return attachment, nil
}

func (f *fakeAttachmentRepo) ListForCitation(_ context.Context, pmid string) ([]*domain.Attachment, error) {
	var attachments []*domain.Attachment
	for _, attachment := range f.byDigest {
		for _, linked := range attachment.PMIDs {
			if linked == pmid {
				attachments = append(attachments, attachment)
			}
		}
	}
	return attachments, nil
}

func (f *fakeAttachmentRepo) Unlink(context.Context, string, string) error {
	return nil
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAttacher_AttachFile(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	metrics := observability.NewMetrics("test_store_attach")

	t.Run("stores a new file keyed by content digest", func(t *testing.T) {
		repo := newFakeAttachmentRepo()
		attacher := NewAttacher(repo, logger, metrics)
		path := writeTestFile(t, t.TempDir(), "11700088.txt", "abstract body")

		digest, err := attacher.AttachFile(ctx, path, false)
		require.NoError(t, err)
		assert.Equal(t, Digest([]byte("abstract body")), digest)

		attachment, err := repo.GetByDigest(ctx, digest)
		require.NoError(t, err)
		assert.Equal(t, "11700088.txt", attachment.Filename)
		assert.Equal(t, []string{"11700088"}, attachment.PMIDs)
	})

	t.Run("re-attaching the same file is a no-op", func(t *testing.T) {
		repo := newFakeAttachmentRepo()
		attacher := NewAttacher(repo, logger, metrics)
		path := writeTestFile(t, t.TempDir(), "11700088.txt", "abstract body")

		first, err := attacher.AttachFile(ctx, path, false)
		require.NoError(t, err)
		second, err := attacher.AttachFile(ctx, path, false)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, repo.putCalls)
	})

	t.Run("force re-stores an already linked file", func(t *testing.T) {
		repo := newFakeAttachmentRepo()
		attacher := NewAttacher(repo, logger, metrics)
		path := writeTestFile(t, t.TempDir(), "11700088.txt", "abstract body")

		_, err := attacher.AttachFile(ctx, path, false)
		require.NoError(t, err)
		_, err = attacher.AttachFile(ctx, path, true)
		require.NoError(t, err)

		assert.Equal(t, 2, repo.putCalls)
	})

	t.Run("same bytes under a second PMID share one body", func(t *testing.T) {
		repo := newFakeAttachmentRepo()
		attacher := NewAttacher(repo, logger, metrics)
		dir := t.TempDir()
		first := writeTestFile(t, dir, "11700088.txt", "shared body")
		second := writeTestFile(t, dir, "12345678.txt", "shared body")

		digest1, err := attacher.AttachFile(ctx, first, false)
		require.NoError(t, err)
		digest2, err := attacher.AttachFile(ctx, second, false)
		require.NoError(t, err)
		assert.Equal(t, digest1, digest2)

		attachment, err := repo.GetByDigest(ctx, digest1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"11700088", "12345678"}, attachment.PMIDs)
	})

	t.Run("unreadable file reports an error", func(t *testing.T) {
		repo := newFakeAttachmentRepo()
		attacher := NewAttacher(repo, logger, metrics)

		_, err := attacher.AttachFile(ctx, filepath.Join(t.TempDir(), "missing.txt"), false)
		assert.Error(t, err)
	})
}

func TestAttacher_AttachAll(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	metrics := observability.NewMetrics("test_store_attach_all")

	t.Run("continues past unreadable files", func(t *testing.T) {
		repo := newFakeAttachmentRepo()
		attacher := NewAttacher(repo, logger, metrics)
		dir := t.TempDir()
		good := writeTestFile(t, dir, "11700088.txt", "body one")

		results := attacher.AttachAll(ctx, []string{good, filepath.Join(dir, "missing.txt")}, false)
		require.Len(t, results, 1)
		assert.Len(t, results["11700088"], 1)
	})
}
