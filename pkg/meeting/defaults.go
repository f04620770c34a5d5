package meeting

import "time"

// TimestampLayout is the serialized form of synthesized timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultResult is a placeholder question result. Its timestamp is Offset
// after the meeting's creation time.
type DefaultResult struct {
	CandidateResult
	Offset time.Duration
}

// DefaultRecording is a placeholder recording stamped Offset after creation.
type DefaultRecording struct {
	Recording
	Offset time.Duration
}

// DefaultTable holds the literal values Enrich uses for absent fields.
type DefaultTable struct {
	CandidateName      string
	CandidateEmail     string
	Summary            string
	Results            []DefaultResult
	Recordings         []DefaultRecording
	PerformanceMetrics []PerformanceMetric
}

// Defaults is the placeholder content shown until a scoring pipeline writes
// real results.
var Defaults = DefaultTable{
	CandidateName:  "John Doe",
	CandidateEmail: "john.doe@example.com",
	Summary: "The candidate communicated clearly and gave structured answers. " +
		"Technical depth was uneven: strong on fundamentals, weaker on system design trade-offs. " +
		"Problem solving under time pressure needs further practice.",
	Results: []DefaultResult{
		{
			CandidateResult: CandidateResult{
				ID:         "r1",
				QuestionID: "q1",
				Question:   "Tell us about a project you are proud of.",
				Answer:     "I led the migration of our billing service to an event-driven design.",
				Score:      8.5,
				Feedback:   "Clear ownership and measurable outcomes.",
			},
			Offset: 2 * time.Minute,
		},
		{
			CandidateResult: CandidateResult{
				ID:         "r2",
				QuestionID: "q2",
				Question:   "How would you design a rate limiter?",
				Answer:     "A token bucket per client, with counters kept in a shared cache.",
				Score:      7.8,
				Feedback:   "Sound approach; distributed consistency was only touched on.",
			},
			Offset: 12 * time.Minute,
		},
		{
			CandidateResult: CandidateResult{
				ID:         "r3",
				QuestionID: "q3",
				Question:   "Describe a time you disagreed with a teammate.",
				Answer:     "We compared both options with a small prototype and let the data decide.",
				Score:      9.2,
				Feedback:   "Constructive and evidence driven.",
			},
			Offset: 24 * time.Minute,
		},
	},
	Recordings: []DefaultRecording{
		{
			Recording: Recording{
				ID:       "rec1",
				URL:      "#",
				Name:     "Full Interview Recording",
				Duration: 1850,
			},
		},
	},
	PerformanceMetrics: []PerformanceMetric{
		{Name: "Communication", Score: 2, MaxScore: 2, Feedback: "Articulate and well paced."},
		{Name: "Technical Knowledge", Score: 1, MaxScore: 2, Feedback: "Solid basics, gaps in design depth."},
		{Name: "Problem Solving", Score: 0, MaxScore: 2, Feedback: "Did not reach a working solution."},
	},
}

func (d DefaultTable) results(createdAt time.Time) []CandidateResult {
	out := make([]CandidateResult, len(d.Results))
	for i, r := range d.Results {
		out[i] = r.CandidateResult
		out[i].Timestamp = createdAt.Add(r.Offset).UTC().Format(TimestampLayout)
	}
	return out
}

func (d DefaultTable) recordings(createdAt time.Time) []Recording {
	out := make([]Recording, len(d.Recordings))
	for i, r := range d.Recordings {
		out[i] = r.Recording
		out[i].Timestamp = createdAt.Add(r.Offset).UTC().Format(TimestampLayout)
	}
	return out
}

func (d DefaultTable) metrics() []PerformanceMetric {
	return append([]PerformanceMetric(nil), d.PerformanceMetrics...)
}
