package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/metrics"
	"github.com/surveysense/backend/pkg/logger"
)

// maxBatchSize is the hard document limit of the hosted sentiment service.
const maxBatchSize = 10

// Classifier assigns one Label per response, same length and order as the
// input. Implementations must not fail the whole call when a batch fails.
type Classifier interface {
	Classify(ctx context.Context, responses []string) []Label
}

// LanguageClassifier delegates to a hosted text-analytics sentiment
// endpoint and applies the keyword override on top of its output.
type LanguageClassifier struct {
	endpoint   string
	apiKey     string
	apiVersion string
	keywords   []string
	httpClient *http.Client
}

func NewLanguageClassifier(endpoint, apiKey, apiVersion string, negativeKeywords []string, timeoutSec int) *LanguageClassifier {
	logger.Info("Sentiment classifier initialized",
		zap.String("provider", "language"),
		zap.String("endpoint", endpoint),
		zap.Int("negative_keywords", len(negativeKeywords)),
	)

	return &LanguageClassifier{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiVersion: apiVersion,
		keywords:   negativeKeywords,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type analyzeDocument struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type analyzeRequest struct {
	Kind          string `json:"kind"`
	AnalysisInput struct {
		Documents []analyzeDocument `json:"documents"`
	} `json:"analysisInput"`
}

type analyzeResponse struct {
	Results struct {
		Documents []struct {
			ID        string `json:"id"`
			Sentiment string `json:"sentiment"`
		} `json:"documents"`
		Errors []struct {
			ID string `json:"id"`
		} `json:"errors"`
	} `json:"results"`
}

// Classify batches the responses in fixed windows of ten, issues the
// batches sequentially, and maps a failed batch to error labels without
// aborting the remaining batches.
func (c *LanguageClassifier) Classify(ctx context.Context, responses []string) []Label {
	labels := make([]Label, len(responses))

	for start := 0; start < len(responses); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(responses) {
			end = len(responses)
		}

		batch, err := c.classifyBatch(ctx, responses[start:end])
		if err != nil {
			logger.Warn("Sentiment batch failed",
				zap.Error(err),
				zap.Int("batch_start", start),
				zap.Int("batch_size", end-start),
			)
			metrics.SentimentBatches.WithLabelValues("error").Inc()
			for i := start; i < end; i++ {
				labels[i] = LabelError
			}
			continue
		}

		metrics.SentimentBatches.WithLabelValues("ok").Inc()
		copy(labels[start:], batch)
	}

	for i, text := range responses {
		labels[i] = applyNegativeOverride(c.keywords, text, labels[i])
	}

	return labels
}

func (c *LanguageClassifier) classifyBatch(ctx context.Context, texts []string) ([]Label, error) {
	var reqBody analyzeRequest
	reqBody.Kind = "SentimentAnalysis"
	reqBody.AnalysisInput.Documents = make([]analyzeDocument, len(texts))
	for i, text := range texts {
		reqBody.AnalysisInput.Documents[i] = analyzeDocument{
			ID:       strconv.Itoa(i),
			Language: "ko",
			Text:     text,
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	url := fmt.Sprintf("%s/language/:analyze-text?api-version=%s", c.endpoint, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyze request returned status %d", resp.StatusCode)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode analyze response: %w", err)
	}

	// Per-document errors arrive in a separate list; every slot starts as
	// an error label and is overwritten by a successful document result.
	labels := make([]Label, len(texts))
	for i := range labels {
		labels[i] = LabelError
	}
	for _, doc := range parsed.Results.Documents {
		idx, err := strconv.Atoi(doc.ID)
		if err != nil || idx < 0 || idx >= len(texts) {
			continue
		}
		labels[idx] = mapServiceSentiment(doc.Sentiment)
	}

	return labels, nil
}

func mapServiceSentiment(sentiment string) Label {
	switch sentiment {
	case "positive":
		return LabelPositive
	case "negative":
		return LabelNegative
	case "neutral":
		return LabelNeutral
	default:
		return LabelOther
	}
}
