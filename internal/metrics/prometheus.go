package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QnADuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surveysense_qna_duration_seconds",
			Help:    "QnA processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)

	QnATotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveysense_qna_total",
			Help: "Total number of questions processed",
		},
		[]string{"status"},
	)

	PassagesRetrieved = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surveysense_passages_retrieved",
			Help:    "Number of deduplicated passages per question",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	RoutedColumns = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surveysense_routed_columns",
			Help:    "Number of columns the router selected per question",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	SurveysIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "surveysense_surveys_ingested_total",
			Help: "Total survey uploads processed",
		},
	)

	ResponsesIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "surveysense_responses_indexed_total",
			Help: "Total response documents sent to the index",
		},
	)

	SentimentBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveysense_sentiment_batches_total",
			Help: "Sentiment classification batches by outcome",
		},
		[]string{"status"},
	)

	IndexBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveysense_index_batches_total",
			Help: "Index upsert batches by outcome",
		},
		[]string{"status"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveysense_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"deployment", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveysense_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveysense_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(QnADuration)
	prometheus.MustRegister(QnATotal)
	prometheus.MustRegister(PassagesRetrieved)
	prometheus.MustRegister(RoutedColumns)
	prometheus.MustRegister(SurveysIngested)
	prometheus.MustRegister(ResponsesIndexed)
	prometheus.MustRegister(SentimentBatches)
	prometheus.MustRegister(IndexBatches)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
