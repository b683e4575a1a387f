package medline

import (
	"strconv"
	"strings"
	"time"
)

// monthNames translates three-letter month abbreviations as they appear in
// MEDLINE date elements.
var monthNames = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// transformDate attempts to read a Year/Month/Day subtree as a calendar
// date. A Date is produced only when year and month both resolve; a missing
// or unparsable day defaults to the first of the month. Anything less falls
// back to the untransformed branch mapping. Date parsing failure is a
// structural fallback, never an error: PubDate elements frequently carry
// only a year, and dates enclosing a MedlineDate can never parse.
func transformDate(n *Node) Value {
	year, ok := intChild(n, "Year")
	if !ok {
		return transformBranch(n)
	}
	month, ok := monthChild(n)
	if !ok {
		return transformBranch(n)
	}
	day, ok := intChild(n, "Day")
	if !ok || day < 1 || day > 31 {
		day = 1
	}
	return Date{Year: year, Month: month, Day: day}
}

// intChild parses the named child's text as an integer.
func intChild(n *Node, tag string) (int, bool) {
	c := n.Find(tag)
	if c == nil {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(c.Text))
	if err != nil {
		return 0, false
	}
	return v, true
}

// monthChild resolves the Month child to a calendar month, accepting both
// numeric values and three-letter abbreviations.
func monthChild(n *Node) (time.Month, bool) {
	c := n.Find("Month")
	if c == nil {
		return 0, false
	}
	text := strings.TrimSpace(c.Text)
	if v, err := strconv.Atoi(text); err == nil {
		if v >= 1 && v <= 12 {
			return time.Month(v), true
		}
		return 0, false
	}
	if m, ok := monthNames[strings.ToLower(text)]; ok {
		return m, true
	}
	return 0, false
}
