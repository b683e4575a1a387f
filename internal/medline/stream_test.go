package medline

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

const sampleCitation = `<MedlineCitation Owner="NLM" Status="MEDLINE">
	<PMID Version="1">11700088</PMID>
	<DateCreated><Year>2001</Year><Month>11</Month><Day>8</Day></DateCreated>
	<Article>
		<ArticleTitle>A title.</ArticleTitle>
		<Abstract><AbstractText>Background info.</AbstractText></Abstract>
		<Language>eng</Language>
	</Article>
</MedlineCitation>`

func TestReaderNext(t *testing.T) {
	t.Run("citation set yields one record per citation", func(t *testing.T) {
		src := `<MedlineCitationSet>` + sampleCitation + strings.Replace(
			sampleCitation, "11700088", "11700089", 1) + `</MedlineCitationSet>`
		r := NewReader(strings.NewReader(src))

		first, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, Scalar("11700088"), first["_id"])
		assert.Equal(t, Identifier{Value: "11700088", Version: 1}, first["PMID"])

		second, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, Scalar("11700089"), second["_id"])

		_, err = r.Next()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("bare citation without a container", func(t *testing.T) {
		r := NewReader(strings.NewReader(sampleCitation))
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, Scalar("MEDLINE"), rec["Status"])
	})

	t.Run("pubmed article merges pubmed data identifiers", func(t *testing.T) {
		src := `<PubmedArticleSet><PubmedArticle>` + sampleCitation + `
			<PubmedData>
				<ArticleIdList>
					<ArticleId IdType="pubmed">11700088</ArticleId>
					<ArticleId IdType="doi">10.1006/jmbi.2001.5134</ArticleId>
				</ArticleIdList>
			</PubmedData>
		</PubmedArticle></PubmedArticleSet>`
		r := NewReader(strings.NewReader(src))
		rec, err := r.Next()
		require.NoError(t, err)

		ids, ok := rec.Mapping("ArticleIds")
		require.True(t, ok)
		assert.Equal(t, Mapping{
			"pubmed": Scalar("11700088"),
			"doi":    Scalar("10.1006/jmbi.2001.5134"),
		}, ids)
	})

	t.Run("nlm other id with pmc value maps to the pmc key", func(t *testing.T) {
		src := `<MedlineCitation>
			<PMID>11700088</PMID>
			<OtherID Source="NLM">PMC59895</OtherID>
			<OtherID Source="KIE">12345</OtherID>
		</MedlineCitation>`
		r := NewReader(strings.NewReader(src))
		rec, err := r.Next()
		require.NoError(t, err)

		ids, ok := rec.Mapping("ArticleIds")
		require.True(t, ok)
		assert.Equal(t, Mapping{
			"pmc": Scalar("PMC59895"),
			"kie": Scalar("12345"),
		}, ids)
	})

	t.Run("duplicate other id source is an error", func(t *testing.T) {
		src := `<MedlineCitation>
			<PMID>11700088</PMID>
			<OtherID Source="KIE">first</OtherID>
			<OtherID Source="KIE">second</OtherID>
		</MedlineCitation>`
		_, err := NewReader(strings.NewReader(src)).Next()
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)

		var dupErr *domain.DuplicateIdentifierError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "kie", dupErr.IDType)
	})

	t.Run("missing pmid is an error", func(t *testing.T) {
		src := `<MedlineCitation><Article><ArticleTitle>No id.</ArticleTitle></Article></MedlineCitation>`
		_, err := NewReader(strings.NewReader(src)).Next()
		assert.ErrorIs(t, err, domain.ErrMissingIdentifier)
	})

	t.Run("unrecognized top level element is an error", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(`<BookDocument/>`)).Next()
		assert.ErrorIs(t, err, domain.ErrUnrecognizedElement)

		var unrecErr *domain.UnrecognizedElementError
		require.ErrorAs(t, err, &unrecErr)
		assert.Equal(t, "BookDocument", unrecErr.Tag)
	})

	t.Run("skip unknown passes over foreign elements", func(t *testing.T) {
		src := `<PubmedArticleSet><BookDocument><Title>x</Title></BookDocument>` +
			sampleCitation + `</PubmedArticleSet>`
		r := NewReader(strings.NewReader(src), WithSkipUnknown())
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, Scalar("11700088"), rec["_id"])
	})

	t.Run("malformed xml is an error", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(`<MedlineCitation><PMID>1`)).Next()
		assert.ErrorIs(t, err, domain.ErrMalformedXML)
	})

	t.Run("custom identifier key", func(t *testing.T) {
		r := NewReader(strings.NewReader(sampleCitation), WithIDKey("pmid"))
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, Scalar("11700088"), rec["pmid"])
		assert.NotContains(t, rec, "_id")
	})
}

func TestReaderAll(t *testing.T) {
	t.Run("collects every record", func(t *testing.T) {
		src := `<MedlineCitationSet>` + sampleCitation + strings.Replace(
			sampleCitation, "11700088", "11700089", 1) + `</MedlineCitationSet>`
		records, err := NewReader(strings.NewReader(src)).All()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, Scalar("11700088"), records[0]["_id"])
		assert.Equal(t, Scalar("11700089"), records[1]["_id"])
	})

	t.Run("stops on the first error", func(t *testing.T) {
		src := `<MedlineCitationSet>` + sampleCitation + `<BookDocument/></MedlineCitationSet>`
		records, err := NewReader(strings.NewReader(src)).All()
		assert.ErrorIs(t, err, domain.ErrUnrecognizedElement)
		assert.Len(t, records, 1)
	})

	t.Run("empty stream", func(t *testing.T) {
		records, err := NewReader(strings.NewReader(`<MedlineCitationSet></MedlineCitationSet>`)).All()
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestRecordJSON(t *testing.T) {
	r := NewReader(strings.NewReader(sampleCitation))
	rec, err := r.Next()
	require.NoError(t, err)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	doc := string(raw)
	assert.Contains(t, doc, `"PMID":["11700088",1]`)
	assert.Contains(t, doc, `"DateCreated":"2001-11-08"`)
	assert.Contains(t, doc, `"LanguageList":["eng"]`)
	assert.Contains(t, doc, `"_id":"11700088"`)
}

func TestReaderStreamsLazily(t *testing.T) {
	// A truncated second citation must not prevent reading the first.
	src := `<MedlineCitationSet>` + sampleCitation + `<MedlineCitation><PMID>2`
	r := NewReader(strings.NewReader(src))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Scalar("11700088"), rec["_id"])

	_, err = r.Next()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
}
