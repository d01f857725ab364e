package pipeline

import "horse.fit/jobdedup/internal/shortlist"

func shortlistOf(testID, trainID string) shortlist.Shortlist {
	return shortlist.Shortlist{
		Method: "tfidf",
		TopK:   1,
		Entries: []shortlist.Entry{{
			TestID:     testID,
			Candidates: []shortlist.Candidate{{TrainID: trainID, Score: 1}},
		}},
	}
}
