package survey

// DeriveScores applies every definition to every record of ds. The schema is
// checked once up front; a record that answered none of a construct's items
// gets an invalid (null) score for it.
func DeriveScores(ds *Dataset, defs []ConstructDefinition) ([]ScoredRecord, error) {
	if err := CheckSchema(ds.Schema, defs); err != nil {
		return nil, err
	}

	out := make([]ScoredRecord, len(ds.Records))
	for i, rec := range ds.Records {
		scores := make(map[string]Score, len(defs))
		for _, d := range defs {
			scores[d.Name] = meanOfPresent(rec.Items, d.Items)
		}
		out[i] = ScoredRecord{SurveyRecord: rec, Scores: scores}
	}
	return out, nil
}

func meanOfPresent(values map[string]float64, fields []string) Score {
	var sum float64
	n := 0
	for _, f := range fields {
		v, ok := values[f]
		if !ok || !finite(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return Score{}
	}
	return Score{Value: sum / float64(n), Valid: true}
}

// NullScores counts invalid scores per construct.
func NullScores(records []ScoredRecord) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		for name, s := range r.Scores {
			if !s.Valid {
				counts[name]++
			}
		}
	}
	return counts
}
