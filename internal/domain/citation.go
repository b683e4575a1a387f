package domain

import (
	"encoding/json"
	"time"
)

// Citation statuses that mark a record as still in flux at the NLM and
// therefore always eligible for refresh.
const (
	StatusInDataReview = "In-Data-Review"
	StatusInProcess    = "In-Process"
)

// Citation is one stored bibliographic record: the transformed document
// plus the extracted fields the update policy and text search need.
type Citation struct {
	// PMID is the PubMed identifier, the primary key.
	PMID string
	// Version is the PMID version, 1 unless the source said otherwise.
	Version int
	// Status is the MedlineCitation Status attribute (MEDLINE, In-Process, ...).
	Status string
	// Document is the full transformed record as JSON.
	Document json.RawMessage
	// Text is the flattened title plus abstract sections, in reading order.
	Text string
	// DateCreated, DateCompleted and DateRevised are the NLM processing
	// stamps lifted out of the document for the staleness policy.
	DateCreated   *time.Time
	DateCompleted *time.Time
	DateRevised   *time.Time
	// CreatedAt and UpdatedAt are local store timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Section is one annotated text segment split out of a citation document:
// the title, or one labelled abstract paragraph.
type Section struct {
	PMID    string
	Seq     int
	Name    string
	Content string
}

// Attachment is an auxiliary file linked to one or more citations,
// content-addressed by digest so re-attaching the same bytes is a no-op.
type Attachment struct {
	// Digest is the hex BLAKE3 digest of the file contents.
	Digest string
	// Filename is the original base name (PMID plus extension).
	Filename string
	// PMIDs are the citations this file is attached to.
	PMIDs []string
	// Content is the raw file body.
	Content []byte
	// CreatedAt is the local store timestamp.
	CreatedAt time.Time
}
