package pairing

import (
	"github.com/rs/zerolog"

	"horse.fit/jobdedup/internal/config"
)

// DefaultWindowDays is used for date.past and date.future when the settings
// do not carry an integer.
const DefaultWindowDays = 60

// FilterParams is the validated metadata filter configuration. It is built
// once per command and never changed afterwards.
type FilterParams struct {
	past, future         int
	fullText             bool
	location             bool
	professionAdvertiser bool
}

// DefaultFilterParams enables every predicate with a 60 day window.
func DefaultFilterParams() FilterParams {
	return FilterParams{
		past:                 DefaultWindowDays,
		future:               DefaultWindowDays,
		fullText:             true,
		location:             true,
		professionAdvertiser: true,
	}
}

// NewFilterParams applies the fallback rules to the raw settings and logs the
// resulting values once.
func NewFilterParams(raw config.MetadataFilter, logger zerolog.Logger) FilterParams {
	var fallbacks []string
	intOr := func(name string, v any) int {
		if n, ok := asInt(v); ok {
			return n
		}
		fallbacks = append(fallbacks, name)
		return DefaultWindowDays
	}
	boolOr := func(name string, v any) bool {
		if b, ok := v.(bool); ok {
			return b
		}
		fallbacks = append(fallbacks, name)
		return true
	}

	p := FilterParams{
		past:                 intOr("date.past", raw.Date.Past),
		future:               intOr("date.future", raw.Date.Future),
		fullText:             boolOr("full_text", raw.FullText),
		location:             boolOr("location_name", raw.LocationName),
		professionAdvertiser: boolOr("profisco_advname", raw.ProfessionAdvertiser),
	}

	event := logger.Info().
		Int("date_past", p.past).
		Int("date_future", p.future).
		Bool("full_text", p.fullText).
		Bool("location_name", p.location).
		Bool("profisco_advname", p.professionAdvertiser)
	if len(fallbacks) > 0 {
		event = event.Strs("defaulted", fallbacks)
	}
	event.Msg("metadata filter configured")
	return p
}

// asInt accepts the integer types produced by the YAML and TOML decoders.
// Booleans, floats and strings are not integers.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}

func (p FilterParams) PastDays() int              { return p.past }
func (p FilterParams) FutureDays() int            { return p.future }
func (p FilterParams) FullText() bool             { return p.fullText }
func (p FilterParams) LocationName() bool         { return p.location }
func (p FilterParams) ProfessionAdvertiser() bool { return p.professionAdvertiser }

// DateOnly reports whether every content predicate is disabled, leaving the
// date window as the only criterion.
func (p FilterParams) DateOnly() bool {
	return !p.fullText && !p.location && !p.professionAdvertiser
}
