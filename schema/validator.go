package adschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/jobdedup/internal/record"
)

//go:embed jobad.schema.json
var jobAdSchemaJSON string

// JobAd is one imported advertisement.
type JobAd struct {
	UniqueID       string     `json:"unique_id,omitempty"`
	Date           string     `json:"date,omitempty"`
	FullText       string     `json:"full_text"`
	LocationName   string     `json:"location_name,omitempty"`
	ProfessionCode flexString `json:"profession_code,omitempty"`
	AdvertiserName string     `json:"advertiser_name,omitempty"`
	SourceWebsite  string     `json:"source_website,omitempty"`
	TestsetID      flexString `json:"testset_id,omitempty"`
}

// flexString accepts a JSON string or integer.
type flexString string

func (s *flexString) UnmarshalJSON(raw []byte) error {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return fmt.Errorf("expected string or integer, got %s", raw)
	}
	*s = flexString(num.String())
	return nil
}

func (ad JobAd) Record() record.Record {
	return record.Record{
		UniqueID:       strings.TrimSpace(ad.UniqueID),
		Date:           strings.TrimSpace(ad.Date),
		FullText:       ad.FullText,
		LocationName:   strings.TrimSpace(ad.LocationName),
		ProfessionCode: strings.TrimSpace(string(ad.ProfessionCode)),
		AdvertiserName: strings.TrimSpace(ad.AdvertiserName),
		SourceWebsite:  strings.TrimSpace(ad.SourceWebsite),
		TestsetID:      strings.TrimSpace(string(ad.TestsetID)),
	}
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateJobAds validates a document holding one job ad object or an array
// of them.
func ValidateJobAds(payload []byte) ([]JobAd, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	items, isArray := value.([]any)
	if !isArray {
		items = []any{value}
	} else if len(items) == 0 {
		return nil, fmt.Errorf("payload array is empty")
	}

	ads := make([]JobAd, 0, len(items))
	for i, item := range items {
		ad, err := validateValue(item)
		if err != nil {
			if isArray {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			return nil, err
		}
		ads = append(ads, *ad)
	}
	return ads, nil
}

func ValidateJobAd(payload json.RawMessage) (*JobAd, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}
	return validateValue(value)
}

func validateValue(value any) (*JobAd, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var ad JobAd
	if err := json.Unmarshal(normalized, &ad); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&ad); err != nil {
		return nil, err
	}
	return &ad, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("jobad.schema.json", strings.NewReader(jobAdSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("jobad.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(ad *JobAd) error {
	if ad == nil {
		return fmt.Errorf("payload is nil")
	}
	if strings.TrimSpace(ad.FullText) == "" {
		return fmt.Errorf("full_text must not be empty")
	}
	if date := strings.TrimSpace(ad.Date); date != "" {
		if _, ok := record.ParseDate(date); !ok {
			return fmt.Errorf("date %q must be YYYY-MM-DD, YYYY-MM-DD HH:MM:SS, RFC3339 or DD.MM.YYYY", date)
		}
	}
	return nil
}
