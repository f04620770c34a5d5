// Package meeting implements the meeting store and the detail view model.
//
// A StoredMeeting is what gets persisted: the fields captured at creation,
// the lifecycle status and any enrichment a scoring pipeline has attached.
// Enrich turns a StoredMeeting into an EnrichedMeeting for display, filling
// absent enrichment from the Defaults table without touching the store.
package meeting

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the lifecycle state of a meeting.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusStopped Status = "stopped"
)

var titleCaser = cases.Title(language.English)

// IsValid reports whether s is one of the three lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusStopped:
		return true
	default:
		return false
	}
}

// CanStart reports whether a start action applies: waiting or stopped meetings.
func (s Status) CanStart() bool {
	return s == StatusWaiting || s == StatusStopped
}

// CanStop reports whether a stop action applies: only active meetings.
func (s Status) CanStop() bool {
	return s == StatusActive
}

// Label returns the status for display, e.g. "Waiting".
func (s Status) Label() string {
	return titleCaser.String(string(s))
}

func (s Status) String() string {
	return string(s)
}

// CandidateResult is one scored question/answer pair.
type CandidateResult struct {
	ID         string  `json:"id" yaml:"id"`
	QuestionID string  `json:"questionId" yaml:"question_id"`
	Question   string  `json:"question" yaml:"question"`
	Answer     string  `json:"answer" yaml:"answer"`
	Score      float64 `json:"score" yaml:"score"`
	Feedback   string  `json:"feedback" yaml:"feedback"`
	Timestamp  string  `json:"timestamp" yaml:"timestamp"`
}

// Recording is a named audio artifact. Duration is in seconds.
type Recording struct {
	ID        string `json:"id" yaml:"id"`
	URL       string `json:"url" yaml:"url"`
	Name      string `json:"name" yaml:"name"`
	Duration  int    `json:"duration" yaml:"duration"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// PerformanceMetric is a named sub-score contributing to the final score.
type PerformanceMetric struct {
	Name     string  `json:"name" yaml:"name"`
	Score    float64 `json:"score" yaml:"score"`
	MaxScore float64 `json:"maxScore" yaml:"max_score"`
	Feedback string  `json:"feedback" yaml:"feedback"`
}

// StoredMeeting is the persisted record. JSON field names match the
// persisted layout of the "meetings" slot.
type StoredMeeting struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title,omitempty" yaml:"title,omitempty"`
	Link         string    `json:"link" yaml:"link"`
	DocumentName string    `json:"documentName" yaml:"document_name"`
	Status       Status    `json:"status" yaml:"status"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created_at"`

	// Enrichment written by a scoring pipeline. Nil or empty means absent.
	CandidateName      string              `json:"candidateName,omitempty" yaml:"candidate_name,omitempty"`
	CandidateEmail     string              `json:"candidateEmail,omitempty" yaml:"candidate_email,omitempty"`
	Results            []CandidateResult   `json:"results,omitempty" yaml:"results,omitempty"`
	Recordings         []Recording         `json:"recordings,omitempty" yaml:"recordings,omitempty"`
	OverallScore       *float64            `json:"overallScore,omitempty" yaml:"overall_score,omitempty"`
	FinalScore         *float64            `json:"finalScore,omitempty" yaml:"final_score,omitempty"`
	Summary            string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	PerformanceMetrics []PerformanceMetric `json:"performanceMetrics,omitempty" yaml:"performance_metrics,omitempty"`
}

// EnrichedMeeting is a StoredMeeting with every optional field filled in.
// It is never persisted.
type EnrichedMeeting struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title,omitempty" yaml:"title,omitempty"`
	Link         string    `json:"link" yaml:"link"`
	DocumentName string    `json:"documentName" yaml:"document_name"`
	Status       Status    `json:"status" yaml:"status"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created_at"`

	CandidateName      string              `json:"candidateName" yaml:"candidate_name"`
	CandidateEmail     string              `json:"candidateEmail" yaml:"candidate_email"`
	Results            []CandidateResult   `json:"results" yaml:"results"`
	Recordings         []Recording         `json:"recordings" yaml:"recordings"`
	OverallScore       float64             `json:"overallScore" yaml:"overall_score"`
	FinalScore         float64             `json:"finalScore" yaml:"final_score"`
	Summary            string              `json:"summary" yaml:"summary"`
	PerformanceMetrics []PerformanceMetric `json:"performanceMetrics" yaml:"performance_metrics"`
}

// PrimaryRecording returns the first recording, used by the single-recording
// detail layout. ok is false when there are no recordings.
func (m EnrichedMeeting) PrimaryRecording() (Recording, bool) {
	if len(m.Recordings) == 0 {
		return Recording{}, false
	}
	return m.Recordings[0], true
}

// MaxFinalScore is the sum of the metrics' maximum scores.
func (m EnrichedMeeting) MaxFinalScore() float64 {
	var total float64
	for _, pm := range m.PerformanceMetrics {
		total += pm.MaxScore
	}
	return total
}
