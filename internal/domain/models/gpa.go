package models

type TermGPA struct {
	Semester string
	GPA      *float64
}

// GPASummary holds the cumulative average and the value of the latest term.
type GPASummary struct {
	Average float64
	Current float64
}

// SummarizeGPA averages all records (missing values count as 0) and takes the record with the
// lexicographically greatest semester label as the current term. Returns nil when there are no records.
func SummarizeGPA(records []TermGPA) *GPASummary {
	if len(records) == 0 {
		return nil
	}

	var sum float64
	latest := records[0]
	for _, r := range records {
		sum += valueOrZero(r.GPA)
		if r.Semester > latest.Semester {
			latest = r
		}
	}

	return &GPASummary{
		Average: sum / float64(len(records)),
		Current: valueOrZero(latest.GPA),
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
