package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/searchindex"
	"github.com/surveysense/backend/internal/sentiment"
	"github.com/surveysense/backend/internal/storage/models"

	"github.com/surveysense/backend/internal/metrics"
	"github.com/surveysense/backend/pkg/logger"
)

type indexer interface {
	ClearAll(ctx context.Context) (int, error)
	Upsert(ctx context.Context, docs []searchindex.Document) []searchindex.BatchResult
}

type summarizer interface {
	Summarize(ctx context.Context, responses []string, columnName, sentimentType string) (string, error)
}

type runStore interface {
	InsertSurveyRun(run *models.SurveyRun) error
	InsertColumnResult(result *models.ColumnResult) error
}

// CacheInvalidator is optional; ingestion uses it to drop answers cached
// against the previous survey generation.
type CacheInvalidator interface {
	InvalidateAnswers(ctx context.Context) error
}

// ColumnInput is one survey question with its raw cell values.
type ColumnInput struct {
	Name      string   `json:"name"`
	Responses []string `json:"responses"`
}

// ColumnAnalysis is the per-column outcome returned to the caller.
type ColumnAnalysis struct {
	Name              string            `json:"name"`
	Score             float64           `json:"score"`
	ResponseCount     int               `json:"response_count"`
	Labels            []sentiment.Label `json:"labels"`
	PositiveResponses []string          `json:"positive_responses"`
	NegativeResponses []string          `json:"negative_responses"`
	PositiveSummary   string            `json:"positive_summary"`
	NegativeSummary   string            `json:"negative_summary"`
}

// Result is the outcome of one survey ingestion run.
type Result struct {
	RunID        string                    `json:"run_id"`
	OverallScore float64                   `json:"overall_score"`
	ClearedCount int                       `json:"cleared_count"`
	Columns      []ColumnAnalysis          `json:"columns"`
	IndexBatches []searchindex.BatchResult `json:"index_batches"`
}

// Pipeline runs one survey upload end to end: wipe the index, classify and
// score every column, summarize the positive and negative partitions, then
// index every (response, label) pair under a fresh id.
type Pipeline struct {
	classifier sentiment.Classifier
	summarizer summarizer
	index      indexer
	store      runStore
	cache      CacheInvalidator
}

func NewPipeline(classifier sentiment.Classifier, summarizer summarizer, index indexer,
	store runStore, cache CacheInvalidator) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		summarizer: summarizer,
		index:      index,
		store:      store,
		cache:      cache,
	}
}

func (p *Pipeline) Run(ctx context.Context, columns []ColumnInput) (*Result, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("survey has no columns")
	}

	// A new upload must not coexist with documents from the previous one.
	// A failed wipe leaves the index inconsistent, so ingestion stops here.
	cleared, err := p.index.ClearAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear index (deleted %d): %w", cleared, err)
	}

	result := &Result{
		RunID:        uuid.New().String(),
		ClearedCount: cleared,
		Columns:      make([]ColumnAnalysis, 0, len(columns)),
	}

	var docs []searchindex.Document
	var scores []float64
	totalResponses := 0

	for _, column := range columns {
		responses := nonEmpty(column.Responses)
		labels := p.classifier.Classify(ctx, responses)

		analysis := ColumnAnalysis{
			Name:          column.Name,
			Score:         sentiment.Score(labels),
			ResponseCount: len(responses),
			Labels:        labels,
		}
		for i, r := range responses {
			switch labels[i] {
			case sentiment.LabelPositive:
				analysis.PositiveResponses = append(analysis.PositiveResponses, r)
			case sentiment.LabelNegative:
				analysis.NegativeResponses = append(analysis.NegativeResponses, r)
			}
		}

		analysis.PositiveSummary, err = p.summarizer.Summarize(ctx, analysis.PositiveResponses, column.Name, "긍정")
		if err != nil {
			return nil, err
		}
		analysis.NegativeSummary, err = p.summarizer.Summarize(ctx, analysis.NegativeResponses, column.Name, "부정")
		if err != nil {
			return nil, err
		}

		for i, r := range responses {
			docs = append(docs, searchindex.Document{
				ID:        uuid.New().String(),
				Column:    column.Name,
				Sentiment: string(labels[i]),
				Text:      r,
			})
		}

		scores = append(scores, analysis.Score)
		totalResponses += len(responses)
		result.Columns = append(result.Columns, analysis)
	}

	result.OverallScore = sentiment.Overall(scores)
	result.IndexBatches = p.index.Upsert(ctx, docs)
	metrics.ResponsesIndexed.Add(float64(len(docs)))
	metrics.SurveysIngested.Inc()

	p.persist(result, totalResponses)

	if p.cache != nil {
		if err := p.cache.InvalidateAnswers(ctx); err != nil {
			logger.Warn("Failed to invalidate answer cache", zap.Error(err))
		}
	}

	logger.Info("Survey ingested",
		zap.String("run_id", result.RunID),
		zap.Int("columns", len(result.Columns)),
		zap.Int("responses", totalResponses),
		zap.Int("cleared", cleared),
		zap.Float64("overall_score", result.OverallScore),
	)

	return result, nil
}

func (p *Pipeline) persist(result *Result, totalResponses int) {
	if p.store == nil {
		return
	}

	err := p.store.InsertSurveyRun(&models.SurveyRun{
		ID:            result.RunID,
		ColumnCount:   len(result.Columns),
		ResponseCount: totalResponses,
		OverallScore:  result.OverallScore,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record survey run", zap.Error(err))
		return
	}

	for _, col := range result.Columns {
		err := p.store.InsertColumnResult(&models.ColumnResult{
			RunID:           result.RunID,
			Name:            col.Name,
			Score:           col.Score,
			ResponseCount:   col.ResponseCount,
			PositiveCount:   len(col.PositiveResponses),
			NegativeCount:   len(col.NegativeResponses),
			PositiveSummary: col.PositiveSummary,
			NegativeSummary: col.NegativeSummary,
		})
		if err != nil {
			logger.Warn("Failed to record column result",
				zap.Error(err),
				zap.String("column", col.Name),
			)
		}
	}
}

func nonEmpty(responses []string) []string {
	out := make([]string, 0, len(responses))
	for _, r := range responses {
		if strings.TrimSpace(r) != "" {
			out = append(out, r)
		}
	}
	return out
}
