package pairing

import (
	"strings"

	"horse.fit/jobdedup/internal/record"
)

// withinWindow reports whether other was posted inside the anchor's window
// [anchor-past, anchor+future]. A missing date on either side passes.
func (p FilterParams) withinWindow(anchor, other record.Record) bool {
	a, ok := anchor.PostedOn()
	if !ok {
		return true
	}
	b, ok := other.PostedOn()
	if !ok {
		return true
	}
	return !b.Before(a.AddDate(0, 0, -p.past)) && !b.After(a.AddDate(0, 0, p.future))
}

// contentMatch is the OR of the enabled content predicates, or true when all
// of them are disabled. Predicates whose field is missing on the anchor do
// not match.
func (p FilterParams) contentMatch(anchor, other record.Record) bool {
	if p.DateOnly() {
		return true
	}
	if p.fullText && anchor.Has(record.FieldFullText) && anchor.FullText == other.FullText {
		return true
	}
	if p.location && anchor.Has(record.FieldLocationName) && anchor.LocationName == other.LocationName {
		return true
	}
	if p.professionAdvertiser && anchor.Has(record.FieldProfessionCode) && anchor.ProfessionCode == other.ProfessionCode {
		return advertiserMatch(anchor.AdvertiserName, other.AdvertiserName)
	}
	return false
}

// accept applies the window of the anchor only. Cross-dataset pairs use it
// with the test record as anchor.
func (p FilterParams) accept(anchor, other record.Record) bool {
	return p.withinWindow(anchor, other) && p.contentMatch(anchor, other)
}

// acceptMutual requires each record to lie in the other's window, so the
// outcome does not depend on which record is visited first.
func (p FilterParams) acceptMutual(a, b record.Record) bool {
	return p.withinWindow(a, b) && p.withinWindow(b, a) && p.contentMatch(a, b)
}

// advertiserMatch holds when both names are present and one contains the
// other.
func advertiserMatch(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
