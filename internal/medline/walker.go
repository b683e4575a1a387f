package medline

import (
	"strconv"
	"strings"
)

// category is the closed set of element classes the rule table knows about.
// Classification replaces the original DTD's implicit name conventions with
// an explicit enumeration; rule priority follows the declaration order of
// the classify switch.
type category int

const (
	catIdentifier category = iota // PMID: (value, version) tuple
	catTypedID                    // ISSN: (type, value) tuple, dropped when empty
	catFreeFormDate               // MedlineDate: raw scalar, never date-parsed
	catAbstract                   // Abstract: category-keyed mapping
	catArticleIDList              // ArticleIdList: IdType-keyed mapping, renamed
	catDateLike                   // Date-prefixed or -suffixed: calendar date with mapping fallback
	catMeshHeading                // MeshHeading: (major, descriptor, qualifiers) tuple
	catLanguage                   // Language: collected into LanguageList by the parent
	catList                       // *List: ordered sequence, attributes discarded
	catGenericLeaf
	catGenericBranch
)

// skippedElements are citation children that are never parsed. OtherID is
// also listed here: the record producer resolves it separately into the
// ArticleIds mapping.
var skippedElements = map[string]bool{
	"OtherID":            true,
	"OtherAbstract":      true,
	"SpaceFlightMission": true,
	"GeneralNote":        true,
	"NameID":             true,
	"ELocationID":        true,
	"CitationSubset":     true,
}

// classify assigns a node to its transform rule. Named special cases win over
// the generic name-pattern rules, and the free-form date exception is checked
// before the date pattern that would otherwise capture it.
func classify(n *Node) category {
	switch n.Tag {
	case "PMID":
		return catIdentifier
	case "ISSN":
		return catTypedID
	case "MedlineDate":
		return catFreeFormDate
	case "Abstract":
		return catAbstract
	case "ArticleIdList":
		return catArticleIDList
	case "MeshHeading":
		return catMeshHeading
	case "Language":
		return catLanguage
	}
	if strings.HasPrefix(n.Tag, "Date") || strings.HasSuffix(n.Tag, "Date") {
		return catDateLike
	}
	if strings.HasSuffix(n.Tag, "List") {
		return catList
	}
	if n.IsLeaf() {
		return catGenericLeaf
	}
	return catGenericBranch
}

// Transform converts one XML subtree into a Value. It is a pure function of
// the subtree and never fails: structurally odd input degrades to the most
// literal mapping representation. A nil result means the element is omitted
// from its parent entirely (e.g. an ISSN with empty content).
func Transform(n *Node) Value {
	switch classify(n) {
	case catIdentifier:
		return transformIdentifier(n)
	case catTypedID:
		return transformTypedID(n)
	case catFreeFormDate:
		return Scalar(n.Text)
	case catAbstract:
		return transformAbstract(n)
	case catArticleIDList:
		return transformArticleIDs(n)
	case catDateLike:
		return transformDate(n)
	case catMeshHeading:
		return transformMeshHeading(n)
	case catList:
		return transformList(n)
	case catGenericLeaf, catLanguage:
		return collapseLeaf(n)
	default:
		return transformBranch(n)
	}
}

// transformIdentifier produces the (value, version) tuple for PMID elements.
// Version defaults to 1 when the attribute is absent or not numeric.
func transformIdentifier(n *Node) Value {
	version := 1
	if v, ok := n.Attr("Version"); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			version = parsed
		}
	}
	return Identifier{Value: n.Text, Version: version}
}

// transformTypedID produces the (type, value) tuple for ISSN elements. An
// empty value drops the whole element from its parent.
func transformTypedID(n *Node) Value {
	if n.Text == "" {
		return nil
	}
	return TypedID{Type: n.AttrDefault("IssnType", ""), Value: n.Text}
}

// transformList converts every child element and returns the ordered
// sequence. The list element's own attributes are always discarded; the
// citation DTD never puts meaning on them. Zero children still yield an
// empty, non-nil List.
func transformList(n *Node) Value {
	values := make(List, 0, len(n.Children))
	for _, c := range n.Children {
		if v := Transform(c); v != nil {
			values = append(values, v)
		}
	}
	return values
}

// transformMeshHeading builds the (major, descriptor, qualifiers) tuple.
// MajorTopicYN is the only YN attribute the transform preserves, defaulting
// to false when absent.
func transformMeshHeading(n *Node) Value {
	term := MeshTerm{Qualifiers: map[string]bool{}}
	if d := n.Find("DescriptorName"); d != nil {
		term.Descriptor = d.Text
		term.Major = d.AttrDefault("MajorTopicYN", "N") == "Y"
	}
	for _, q := range n.FindAll("QualifierName") {
		term.Qualifiers[q.Text] = q.AttrDefault("MajorTopicYN", "N") == "Y"
	}
	return term
}

// transformAbstract keys each AbstractText child by its capitalized
// NlmCategory. Children without a category, or with the UNLABELLED sentinel,
// merge under the fixed AbstractText key. A repeated category concatenates
// with a newline rather than overwriting; this is the one documented
// exception to the generic last-wins duplicate rule.
func transformAbstract(n *Node) Value {
	abstract := Mapping{}
	for _, c := range n.FindAll("AbstractText") {
		if c.Text == "" {
			continue
		}
		key := capitalize(c.AttrDefault("NlmCategory", "UNLABELLED"))
		if key == "Unlabelled" {
			key = "AbstractText"
		}
		if prev, ok := abstract[key].(Scalar); ok {
			abstract[key] = prev + "\n" + Scalar(c.Text)
		} else {
			abstract[key] = Scalar(c.Text)
		}
	}
	if c := n.Find("CopyrightInformation"); c != nil && c.Text != "" {
		abstract["CopyrightInformation"] = Scalar(c.Text)
	}
	return abstract
}

// transformArticleIDs flattens an ArticleIdList into an IdType-keyed mapping
// of plain identifier scalars. A duplicate IdType whose value is shaped like
// a DOI is reassigned to the doi key; any other duplicate keeps the last
// occurrence. The parent stores the result under the ArticleIds key so the
// generic *List rule never sees it.
func transformArticleIDs(n *Node) Value {
	ids := Mapping{}
	for _, c := range n.FindAll("ArticleId") {
		if c.Text == "" {
			continue
		}
		idType := strings.ToLower(strings.TrimSpace(c.AttrDefault("IdType", "")))
		if _, dup := ids[idType]; dup {
			if _, hasDOI := ids["doi"]; !hasDOI && looksLikeDOI(c.Text) {
				idType = "doi"
			}
		}
		ids[idType] = Scalar(c.Text)
	}
	return ids
}

// looksLikeDOI reports whether s matches the digits-dot-prefix/suffix shape
// of a DOI, e.g. "10.1000/xyz123".
func looksLikeDOI(s string) bool {
	slash := strings.IndexByte(s, '/')
	if slash < 2 || slash == len(s)-1 {
		return false
	}
	prefix := s[:slash]
	if prefix[0] < '0' || prefix[0] > '9' {
		return false
	}
	for i := 1; i < len(prefix); i++ {
		c := prefix[i]
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}

// collapseLeaf resolves a leaf element that may mix text content with
// attributes.
//
// No attributes: a bare scalar, or omitted entirely when there is no text.
// Exactly one *YN attribute: the attribute is dropped and the text survives
// as a bare scalar. Anything else: the "double-nested" representation, a
// mapping holding the text under the element's own tag plus one key per
// attribute.
func collapseLeaf(n *Node) Value {
	if len(n.Attrs) == 0 {
		if n.Text == "" {
			return nil
		}
		return Scalar(n.Text)
	}
	if len(n.Attrs) == 1 && strings.HasSuffix(n.Attrs[0].Name, "YN") {
		return Scalar(n.Text)
	}
	m := Mapping{n.Tag: Scalar(n.Text)}
	for _, a := range n.Attrs {
		m[a.Name] = Scalar(a.Value)
	}
	return m
}

// transformBranch is the generic rule: a mapping of child tag to child value,
// with the element's own attributes merged in afterwards. Language children
// are pulled out into a LanguageList so that repeated language fields always
// form a list, even for a single occurrence. Repeated ArticleDate siblings
// are disambiguated by prefixing the DateType attribute onto the key. Any
// other duplicate sibling tag is a schema violation resolved by keeping the
// last occurrence.
func transformBranch(n *Node) Value {
	m := Mapping{}
	var languages List

	for _, c := range n.Children {
		if skippedElements[c.Tag] {
			continue
		}
		if classify(c) == catLanguage {
			if v := Transform(c); v != nil {
				languages = append(languages, v)
			}
			continue
		}

		key := c.Tag
		switch c.Tag {
		case "ArticleDate":
			// The DTD default DateType is Electronic.
			key = c.AttrDefault("DateType", "Electronic") + "ArticleDate"
		case "ArticleIdList":
			key = "ArticleIds"
		}

		if v := Transform(c); v != nil {
			m[key] = v
		}
	}

	if len(languages) > 0 {
		m["LanguageList"] = languages
	}
	for _, a := range n.Attrs {
		m[a.Name] = Scalar(a.Value)
	}
	return m
}

// capitalize upper-cases the first byte and lower-cases the rest, matching
// how abstract category attributes (RESULTS, METHODS, ...) become keys.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
