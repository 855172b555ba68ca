package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/surveysense/backend/internal/llm"
)

type generator interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// SummaryGenerator produces the one-line per-sentiment summary shown for
// each survey column.
type SummaryGenerator struct {
	client generator
}

func NewSummaryGenerator(client generator) *SummaryGenerator {
	return &SummaryGenerator{client: client}
}

// Summarize condenses the responses of one (column, sentiment) partition
// into a single sentence. An empty partition returns a templated no-data
// line without touching the model. Summaries run warm (0.7) and are not
// expected to be byte-identical across calls.
func (s *SummaryGenerator) Summarize(ctx context.Context, responses []string, columnName, sentimentType string) (string, error) {
	if len(responses) == 0 {
		return fmt.Sprintf("'%s' 문항에는 %s 응답이 없습니다.", columnName, sentimentType), nil
	}

	prompt := fmt.Sprintf(`당신은 교육 설문조사를 요약하는 AI 도우미입니다.
아래는 "%s" 문항에 대한 %s 응답들입니다.

- 응답들의 공통된 패턴과 가장 많이 나온 응답을 바탕으로 1줄로 요약하세요.
- 주어진 응답에 없는 내용은 넣지 마세요.
- 한국어로 대답하세요.

응답:
%s`, columnName, sentimentType, strings.Join(responses, " "))

	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  prompt,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}
