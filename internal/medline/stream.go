package medline

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

// DefaultIDKey is the record key under which the reader publishes the plain
// PMID string, mirroring the identifier convention of document stores.
const DefaultIDKey = "_id"

// containerElements are wrappers around citation elements that the reader
// descends through without producing anything.
var containerElements = map[string]bool{
	"PubmedArticleSet":   true,
	"MedlineCitationSet": true,
	"ArticleSet":         true,
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithIDKey overrides the key under which each record carries its plain
// PMID string.
func WithIDKey(key string) ReaderOption {
	return func(r *Reader) { r.idKey = key }
}

// WithSkipUnknown makes the reader silently skip top-level elements it has
// not been taught about instead of failing.
func WithSkipUnknown() ReaderOption {
	return func(r *Reader) { r.skipUnknown = true }
}

// Reader produces one Record per citation element from an XML stream. It is
// a pull-based lazy sequence: each call to Next consumes just enough of the
// stream to assemble the next record. A Reader holds no state besides its
// position in the stream, so abandoning it early leaks nothing; closing the
// underlying reader remains the caller's responsibility.
type Reader struct {
	dec         *xml.Decoder
	idKey       string
	skipUnknown bool
}

// NewReader wraps an XML stream of MEDLINE or PubMed citations.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		dec:   xml.NewDecoder(r),
		idKey: DefaultIDKey,
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Next returns the next citation record, or io.EOF when the stream is
// exhausted. Malformed XML and unrecognized top-level elements surface as
// distinct error kinds; no half-built record is ever returned.
func (r *Reader) Next() (Record, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &domain.MalformedXMLError{Cause: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch tag := start.Name.Local; {
		case containerElements[tag]:
			continue
		case tag == "PubmedArticle":
			article, err := readNode(r.dec, start)
			if err != nil {
				return nil, &domain.MalformedXMLError{Cause: err}
			}
			citation := article.Find("MedlineCitation")
			if citation == nil {
				if r.skipUnknown {
					continue
				}
				return nil, &domain.UnrecognizedElementError{Tag: tag}
			}
			return r.assemble(citation, article.Find("PubmedData"))
		case tag == "MedlineCitation":
			citation, err := readNode(r.dec, start)
			if err != nil {
				return nil, &domain.MalformedXMLError{Cause: err}
			}
			return r.assemble(citation, nil)
		case r.skipUnknown:
			if err := r.dec.Skip(); err != nil {
				return nil, &domain.MalformedXMLError{Cause: err}
			}
		default:
			return nil, &domain.UnrecognizedElementError{Tag: tag}
		}
	}
}

// All collects every remaining record. Mostly a test convenience; bulk
// callers should prefer the incremental Next.
func (r *Reader) All() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// assemble runs the transform over one citation subtree, folds in the
// article identifier extension, and publishes the plain PMID under the
// configured identifier key.
func (r *Reader) assemble(citation, pubmedData *Node) (Record, error) {
	rec, ok := Transform(citation).(Mapping)
	if !ok {
		return nil, &domain.UnrecognizedElementError{Tag: citation.Tag}
	}

	ids := Mapping{}
	if existing, ok := rec.Mapping("ArticleIds"); ok {
		ids = existing
	}
	if err := mergeOtherIDs(ids, citation); err != nil {
		return nil, err
	}
	if pubmedData != nil {
		if list := pubmedData.Find("ArticleIdList"); list != nil {
			if extra, ok := Transform(list).(Mapping); ok {
				for k, v := range extra {
					ids[k] = v
				}
			}
		}
	}
	if len(ids) > 0 {
		rec["ArticleIds"] = ids
	}

	pmid, ok := rec["PMID"].(Identifier)
	if !ok || pmid.Value == "" {
		return nil, domain.ErrMissingIdentifier
	}
	rec[r.idKey] = Scalar(pmid.Value)
	return rec, nil
}

// mergeOtherIDs resolves OtherID children, which the transform itself skips,
// into the identifier mapping. The NLM source carrying a PMC value maps to
// the pmc key; a repeated source is a hard error rather than a silent
// overwrite.
func mergeOtherIDs(ids Mapping, citation *Node) error {
	for _, other := range citation.FindAll("OtherID") {
		if other.Text == "" {
			continue
		}
		source := strings.ToLower(other.AttrDefault("Source", ""))
		if source == "nlm" && strings.HasPrefix(other.Text, "PMC") {
			source = "pmc"
		}
		if _, dup := ids[source]; dup {
			return &domain.DuplicateIdentifierError{IDType: source, Value: other.Text}
		}
		ids[source] = Scalar(other.Text)
	}
	return nil
}
