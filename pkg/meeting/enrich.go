package meeting

import "context"

// Enrich returns a display-ready copy of m. Absent optional fields take their
// value from Defaults. When absent, FinalScore is the raw sum of metric
// scores and OverallScore is the mean of result scores. The two use
// different scales and are deliberately not reconciled. m is not modified.
func Enrich(m StoredMeeting) EnrichedMeeting {
	return Defaults.Enrich(m)
}

// Enrich is Enrich using d as the default table.
func (d DefaultTable) Enrich(m StoredMeeting) EnrichedMeeting {
	src := m.clone()

	e := EnrichedMeeting{
		ID:                 src.ID,
		Title:              src.Title,
		Link:               src.Link,
		DocumentName:       src.DocumentName,
		Status:             src.Status,
		CreatedAt:          src.CreatedAt,
		CandidateName:      src.CandidateName,
		CandidateEmail:     src.CandidateEmail,
		Results:            src.Results,
		Recordings:         src.Recordings,
		Summary:            src.Summary,
		PerformanceMetrics: src.PerformanceMetrics,
	}

	if e.CandidateName == "" {
		e.CandidateName = d.CandidateName
	}
	if e.CandidateEmail == "" {
		e.CandidateEmail = d.CandidateEmail
	}
	if len(e.Results) == 0 {
		e.Results = d.results(src.CreatedAt)
	}
	if len(e.Recordings) == 0 {
		e.Recordings = d.recordings(src.CreatedAt)
	}
	if e.Summary == "" {
		e.Summary = d.Summary
	}
	if len(e.PerformanceMetrics) == 0 {
		e.PerformanceMetrics = d.metrics()
	}

	if src.FinalScore != nil {
		e.FinalScore = *src.FinalScore
	} else {
		e.FinalScore = SumMetricScores(e.PerformanceMetrics)
	}
	if src.OverallScore != nil {
		e.OverallScore = *src.OverallScore
	} else {
		e.OverallScore = MeanResultScore(e.Results)
	}
	return e
}

// SumMetricScores adds the raw metric scores without normalizing by MaxScore.
func SumMetricScores(metrics []PerformanceMetric) float64 {
	var total float64
	for _, pm := range metrics {
		total += pm.Score
	}
	return total
}

// MeanResultScore averages result scores. An empty list scores 0.
func MeanResultScore(results []CandidateResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var total float64
	for _, r := range results {
		total += r.Score
	}
	return total / float64(len(results))
}

// Finder looks up a stored meeting by id. *Store implements it.
type Finder interface {
	FindByID(ctx context.Context, id string) (StoredMeeting, error)
}

// Resolver produces enriched meetings for the detail view. Nothing it
// synthesizes is written back.
type Resolver struct {
	finder   Finder
	defaults DefaultTable
}

// NewResolver creates a Resolver backed by finder using Defaults.
func NewResolver(finder Finder) *Resolver {
	return &Resolver{finder: finder, defaults: Defaults}
}

// Resolve finds meeting id and enriches it. A missing meeting returns an
// error wrapping ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, id string) (EnrichedMeeting, error) {
	m, err := r.finder.FindByID(ctx, id)
	if err != nil {
		return EnrichedMeeting{}, err
	}
	return r.defaults.Enrich(m), nil
}
