package models

import "time"

// SurveyRun is one processed survey upload.
type SurveyRun struct {
	ID            string
	ColumnCount   int
	ResponseCount int
	OverallScore  float64
	CreatedAt     time.Time
}

// ColumnResult is the per-column outcome of a run.
type ColumnResult struct {
	RunID           string
	Name            string
	Score           float64
	ResponseCount   int
	PositiveCount   int
	NegativeCount   int
	PositiveSummary string
	NegativeSummary string
}

// QnARecord is one answered (or unanswered) question.
type QnARecord struct {
	ID            string
	Question      string
	Answer        string
	RoutedColumns string
	PassageCount  int
	Found         bool
	LatencyMS     int
	CreatedAt     time.Time
}
