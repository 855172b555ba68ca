package sentiment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/llm"
	"github.com/surveysense/backend/internal/metrics"
	"github.com/surveysense/backend/pkg/logger"
)

type completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// LLMClassifier drives the generative deployment directly with a labeling
// prompt. It predates LanguageClassifier and stays selectable for
// deployments without a text-analytics resource.
type LLMClassifier struct {
	client   completer
	keywords []string
}

func NewLLMClassifier(client completer, negativeKeywords []string) *LLMClassifier {
	logger.Info("Sentiment classifier initialized",
		zap.String("provider", "llm"),
		zap.Int("negative_keywords", len(negativeKeywords)),
	)

	return &LLMClassifier{client: client, keywords: negativeKeywords}
}

func (c *LLMClassifier) Classify(ctx context.Context, responses []string) []Label {
	labels := make([]Label, len(responses))

	for start := 0; start < len(responses); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(responses) {
			end = len(responses)
		}

		batch, err := c.classifyBatch(ctx, responses[start:end])
		if err != nil {
			logger.Warn("LLM sentiment batch failed",
				zap.Error(err),
				zap.Int("batch_start", start),
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

func (c *LLMClassifier) classifyBatch(ctx context.Context, texts []string) ([]Label, error) {
	var sb strings.Builder
	sb.WriteString("당신은 교육 설문조사를 분석하는 AI 도우미입니다.\n")
	sb.WriteString("아래 응답들을 각각 \"긍정\" 또는 \"부정\" 중 하나로 분류해주세요.\n")
	sb.WriteString("결과는 {\"labels\": [...]} 형태의 JSON으로만 반환하고, 순서를 유지하세요.\n")
	sb.WriteString("- 긍정: 칭찬, 만족, 긍정적인 감정 표현\n")
	sb.WriteString("- 부정: 불만, 개선 요구, 부정적인 감정 표현\n\n")
	sb.WriteString("응답:\n")
	for _, text := range texts {
		sb.WriteString("- ")
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	resp, err := c.client.Complete(ctx, llm.CompletionRequest{
		UserPrompt:   sb.String(),
		Temperature:  0,
		JSONResponse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("label completion failed: %w", err)
	}

	raw := NormalizeLabelPayload(resp.Content)
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("label count mismatch: got %d, expected %d", len(raw), len(texts))
	}

	labels := make([]Label, len(raw))
	for i, r := range raw {
		labels[i] = mapKoreanLabel(r)
	}

	return labels, nil
}

func mapKoreanLabel(label string) Label {
	switch strings.TrimSpace(label) {
	case "긍정":
		return LabelPositive
	case "부정":
		return LabelNegative
	case "중립":
		return LabelNeutral
	default:
		return LabelOther
	}
}
