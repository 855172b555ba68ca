package rag

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/metrics"
	"github.com/surveysense/backend/internal/searchindex"
	"github.com/surveysense/backend/internal/storage/models"
	"github.com/surveysense/backend/pkg/logger"
	"github.com/surveysense/backend/pkg/utils"
)

type columnLister interface {
	ListColumns(ctx context.Context, limit int) ([]string, error)
}

type questionRouter interface {
	Route(ctx context.Context, question string, availableColumns []string) ([]string, error)
}

type passageRetriever interface {
	Retrieve(ctx context.Context, question string, routedColumns []string) []searchindex.Passage
}

type answerer interface {
	Answer(ctx context.Context, question string, passages []searchindex.Passage) (string, error)
}

type historyStore interface {
	InsertQnARecord(record *models.QnARecord) error
}

// AnswerCache is satisfied by the redis cache client; it is optional and
// may be nil when caching is disabled.
type AnswerCache interface {
	GetAnswer(ctx context.Context, questionHash string, response interface{}) (bool, error)
	SetAnswer(ctx context.Context, questionHash string, response interface{}, ttl time.Duration) error
}

// Answer is the result of one QnA call.
type Answer struct {
	ID            string                `json:"id"`
	Question      string                `json:"question"`
	Answer        string                `json:"answer"`
	Found         bool                  `json:"found"`
	RoutedColumns []string              `json:"routed_columns"`
	Passages      []searchindex.Passage `json:"passages"`
	LatencyMS     int                   `json:"latency_ms"`
}

// Engine composes column routing, retrieval and synthesis into one QnA
// call: ListColumns -> Route -> Retrieve -> Answer. Without evidence it
// reports "no results" and never invokes the synthesizer.
type Engine struct {
	index       columnLister
	router      questionRouter
	retriever   passageRetriever
	synthesizer answerer
	history     historyStore
	cache       AnswerCache
	sampleLimit int
	cacheTTL    time.Duration
}

func NewEngine(index columnLister, router questionRouter, retriever passageRetriever, synthesizer answerer,
	history historyStore, cache AnswerCache, columnSampleLimit int, cacheTTL time.Duration) *Engine {
	if columnSampleLimit <= 0 {
		columnSampleLimit = 200
	}
	return &Engine{
		index:       index,
		router:      router,
		retriever:   retriever,
		synthesizer: synthesizer,
		history:     history,
		cache:       cache,
		sampleLimit: columnSampleLimit,
		cacheTTL:    cacheTTL,
	}
}

func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()
	questionHash := utils.HashString(question)

	if e.cache != nil {
		var cached Answer
		hit, err := e.cache.GetAnswer(ctx, questionHash, &cached)
		if err != nil {
			logger.Warn("Answer cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("answer").Inc()
			return &cached, nil
		}
		metrics.CacheMisses.WithLabelValues("answer").Inc()
	}

	columns, err := e.index.ListColumns(ctx, e.sampleLimit)
	if err != nil {
		// An unreadable index means no routing candidates; the retriever
		// fallback still gets its chance.
		logger.Warn("Column enumeration failed", zap.Error(err))
		columns = nil
	}

	routed, err := e.router.Route(ctx, question, columns)
	if err != nil {
		metrics.QnATotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RoutedColumns.Observe(float64(len(routed)))

	passages := e.retriever.Retrieve(ctx, question, routed)
	metrics.PassagesRetrieved.Observe(float64(len(passages)))

	answer := &Answer{
		ID:            uuid.New().String(),
		Question:      question,
		RoutedColumns: routed,
		Passages:      passages,
	}

	if len(passages) == 0 {
		answer.Found = false
		answer.LatencyMS = int(time.Since(start).Milliseconds())
		e.record(answer)
		metrics.QnATotal.WithLabelValues("no_results").Inc()
		metrics.QnADuration.WithLabelValues("no_results").Observe(time.Since(start).Seconds())

		logger.Info("Question yielded no evidence",
			zap.String("qna_id", answer.ID),
			zap.String("question", question),
		)
		return answer, nil
	}

	text, err := e.synthesizer.Answer(ctx, question, passages)
	if err != nil {
		metrics.QnATotal.WithLabelValues("error").Inc()
		return nil, err
	}

	answer.Answer = text
	answer.Found = true
	answer.LatencyMS = int(time.Since(start).Milliseconds())

	e.record(answer)

	if e.cache != nil {
		if err := e.cache.SetAnswer(ctx, questionHash, answer, e.cacheTTL); err != nil {
			logger.Warn("Failed to cache answer", zap.Error(err))
		}
	}

	metrics.QnATotal.WithLabelValues("ok").Inc()
	metrics.QnADuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	logger.Info("Question answered",
		zap.String("qna_id", answer.ID),
		zap.Int("passages", len(passages)),
		zap.Int("latency_ms", answer.LatencyMS),
	)

	return answer, nil
}

func (e *Engine) record(answer *Answer) {
	if e.history == nil {
		return
	}

	err := e.history.InsertQnARecord(&models.QnARecord{
		ID:            answer.ID,
		Question:      answer.Question,
		Answer:        answer.Answer,
		RoutedColumns: strings.Join(answer.RoutedColumns, ","),
		PassageCount:  len(answer.Passages),
		Found:         answer.Found,
		LatencyMS:     answer.LatencyMS,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record question", zap.Error(err))
	}
}
