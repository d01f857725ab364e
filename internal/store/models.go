package store

import "horse.fit/jobdedup/internal/record"

// recordRow is the persisted shape of a record. Position keeps the write
// order, which carries the pair layout of candidate tables.
type recordRow struct {
	Position       int      `gorm:"column:position;primaryKey;autoIncrement:false"`
	UniqueID       string   `gorm:"column:unique_id;type:text"`
	Date           string   `gorm:"column:date;type:text"`
	FullText       string   `gorm:"column:full_text;type:text"`
	NormalizedText string   `gorm:"column:normalized_text;type:text"`
	LocationName   string   `gorm:"column:location_name;type:text"`
	ProfessionCode string   `gorm:"column:profession_code;type:text"`
	AdvertiserName string   `gorm:"column:advertiser_name;type:text"`
	SourceWebsite  string   `gorm:"column:source_website;type:text"`
	TestsetID      string   `gorm:"column:testset_id;type:text"`
	PairingLabel   string   `gorm:"column:pairing_label;type:text"`
	Duplicate      bool     `gorm:"column:duplicate;not null;default:false"`
	Levenshtein    *float64 `gorm:"column:levenshtein"`
	Countvec       *float64 `gorm:"column:countvec"`
	TFIDF          *float64 `gorm:"column:tfidf"`
	Doc2vec        *float64 `gorm:"column:doc2vec"`
	Shingling      *float64 `gorm:"column:shingling"`
}

func (r *recordRow) scoreSlots() []**float64 {
	return []**float64{&r.Levenshtein, &r.Countvec, &r.TFIDF, &r.Doc2vec, &r.Shingling}
}

func toRow(position int, rec record.Record) recordRow {
	row := recordRow{
		Position:       position,
		UniqueID:       rec.UniqueID,
		Date:           rec.Date,
		FullText:       rec.FullText,
		NormalizedText: rec.NormalizedText,
		LocationName:   rec.LocationName,
		ProfessionCode: rec.ProfessionCode,
		AdvertiserName: rec.AdvertiserName,
		SourceWebsite:  rec.SourceWebsite,
		TestsetID:      rec.TestsetID,
		PairingLabel:   rec.PairingLabel,
		Duplicate:      rec.Duplicate,
	}
	slots := row.scoreSlots()
	for i, method := range ScoreColumns {
		if v, ok := rec.Score(method); ok {
			score := v
			*slots[i] = &score
		}
	}
	return row
}

func (r recordRow) toRecord() record.Record {
	rec := record.Record{
		UniqueID:       r.UniqueID,
		Date:           r.Date,
		FullText:       r.FullText,
		NormalizedText: r.NormalizedText,
		LocationName:   r.LocationName,
		ProfessionCode: r.ProfessionCode,
		AdvertiserName: r.AdvertiserName,
		SourceWebsite:  r.SourceWebsite,
		TestsetID:      r.TestsetID,
		PairingLabel:   r.PairingLabel,
		Duplicate:      r.Duplicate,
	}
	for i, slot := range r.scoreSlots() {
		if *slot != nil {
			rec.SetScore(ScoreColumns[i], **slot)
		}
	}
	return rec
}
