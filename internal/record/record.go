package record

import (
	"sort"
	"strings"
	"time"
)

// Field names a record attribute. The names double as column names in the
// table stores.
type Field string

const (
	FieldUniqueID       Field = "unique_id"
	FieldDate           Field = "date"
	FieldFullText       Field = "full_text"
	FieldNormalizedText Field = "normalized_text"
	FieldLocationName   Field = "location_name"
	FieldProfessionCode Field = "profession_code"
	FieldAdvertiserName Field = "advertiser_name"
	FieldSourceWebsite  Field = "source_website"
	FieldTestsetID      Field = "testset_id"
	FieldPairingLabel   Field = "pairing_label"
)

// Record is one job advertisement, optionally carrying the columns added by
// later pipeline stages.
type Record struct {
	UniqueID       string
	Date           string
	FullText       string
	NormalizedText string
	LocationName   string
	ProfessionCode string
	AdvertiserName string
	SourceWebsite  string

	// TestsetID is the key used by known-duplicate annotations.
	TestsetID    string
	PairingLabel string
	Duplicate    bool

	// Scores holds one similarity score per method key. A missing key means
	// the score was not computed.
	Scores map[string]float64
}

// Value returns the string value of a field.
func (r Record) Value(f Field) string {
	switch f {
	case FieldUniqueID:
		return r.UniqueID
	case FieldDate:
		return r.Date
	case FieldFullText:
		return r.FullText
	case FieldNormalizedText:
		return r.NormalizedText
	case FieldLocationName:
		return r.LocationName
	case FieldProfessionCode:
		return r.ProfessionCode
	case FieldAdvertiserName:
		return r.AdvertiserName
	case FieldSourceWebsite:
		return r.SourceWebsite
	case FieldTestsetID:
		return r.TestsetID
	case FieldPairingLabel:
		return r.PairingLabel
	default:
		return ""
	}
}

// Has reports whether the field carries a usable value.
func (r Record) Has(f Field) bool {
	return strings.TrimSpace(r.Value(f)) != ""
}

// HasAll reports whether every record of the slice has the field.
func HasAll(records []Record, f Field) bool {
	for _, r := range records {
		if !r.Has(f) {
			return false
		}
	}
	return true
}

// Score returns the score of a method, if computed.
func (r Record) Score(method string) (float64, bool) {
	if r.Scores == nil {
		return 0, false
	}
	v, ok := r.Scores[method]
	return v, ok
}

// SetScore records a score, allocating the map on first use.
func (r *Record) SetScore(method string, score float64) {
	if r.Scores == nil {
		r.Scores = make(map[string]float64, 1)
	}
	r.Scores[method] = score
}

// ScoreMethods lists the methods with a score, sorted.
func (r Record) ScoreMethods() []string {
	out := make([]string, 0, len(r.Scores))
	for m := range r.Scores {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy that shares no mutable state with r.
func (r Record) Clone() Record {
	out := r
	if r.Scores != nil {
		out.Scores = make(map[string]float64, len(r.Scores))
		for k, v := range r.Scores {
			out.Scores[k] = v
		}
	}
	return out
}

// CloneAll clones every record of the slice.
func CloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02.01.2006",
}

// ParseDate parses the posting date. The second return value is false for
// missing or unparseable dates.
func ParseDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// PostedOn returns the parsed posting date of the record.
func (r Record) PostedOn() (time.Time, bool) {
	return ParseDate(r.Date)
}
