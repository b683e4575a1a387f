package store

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/helixir/medline-ingest-service/internal/domain"
	"github.com/helixir/medline-ingest-service/internal/medline"
)

// titleSection is the section name used for the article title.
const titleSection = "Title"

// abstractSectionOrder is the reading order of the labelled abstract
// paragraphs under Article/Abstract.
var abstractSectionOrder = []string{
	"AbstractText",
	"Background",
	"Objective",
	"Methods",
	"Results",
	"Conclusions",
}

// Sections extracts the annotated text segments of a citation record: the
// article title followed by the labelled abstract paragraphs in reading
// order. All content is NFC-normalized. Records without an Article mapping
// yield no sections.
func Sections(rec medline.Record) []domain.Section {
	article, ok := rec.Mapping("Article")
	if !ok {
		return nil
	}

	var sections []domain.Section
	if title, ok := article.Scalar("ArticleTitle"); ok {
		sections = append(sections, domain.Section{
			Name:    titleSection,
			Content: norm.NFC.String(title),
		})
	}

	abstract, ok := article.Mapping("Abstract")
	if !ok {
		return sections
	}
	for _, name := range abstractSectionOrder {
		if content, ok := abstract.Scalar(name); ok {
			sections = append(sections, domain.Section{
				Name:    name,
				Content: norm.NFC.String(content),
			})
		}
	}

	return sections
}

// Text flattens a record's sections into one searchable string, paragraphs
// separated by blank lines.
func Text(rec medline.Record) string {
	sections := Sections(rec)
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.Content
	}
	return strings.Join(parts, "\n\n")
}
