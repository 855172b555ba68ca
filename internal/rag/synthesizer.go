package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/surveysense/backend/internal/llm"
	"github.com/surveysense/backend/internal/searchindex"
)

// AnswerSynthesizer turns retrieved passages into a grounded answer.
// Callers short-circuit before calling it with no evidence, but an empty
// passage list still produces a well-formed (empty) context block.
type AnswerSynthesizer struct {
	client generator
}

func NewAnswerSynthesizer(client generator) *AnswerSynthesizer {
	return &AnswerSynthesizer{client: client}
}

func (s *AnswerSynthesizer) Answer(ctx context.Context, question string, passages []searchindex.Passage) (string, error) {
	prompt := fmt.Sprintf(`당신은 교육 설문 데이터에 기반해 답변해주는 AI입니다.
아래 컨텍스트(응답)만 참고하여 사용자의 질문에 정확히 답을 해주세요.
직접적인 답이 없더라도 관련된 내용이 있으면 그 내용을 바탕으로 추론해서 답하세요.
질문이 복잡하면 핵심 키워드를 뽑아 그 키워드 중심으로 답하세요.
답변에는 근거가 된 응답 내용을 함께 제시하세요.
컨텍스트에 관련 내용이 전혀 없으면 찾지 못했다고 대답하고,
거짓말로 답변을 꾸며서 대답하지 마세요.

컨텍스트:
%s

질문:
%s`, formatContext(passages), question)

	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  prompt,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("answer synthesis failed: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}

// formatContext renders each passage with its provenance so the model can
// quote column and sentiment in its evidence.
func formatContext(passages []searchindex.Passage) string {
	lines := make([]string, 0, len(passages))
	for _, p := range passages {
		lines = append(lines, fmt.Sprintf("- [%s] (%s): %s", p.Column, p.Sentiment, p.Text))
	}
	return strings.Join(lines, "\n")
}
