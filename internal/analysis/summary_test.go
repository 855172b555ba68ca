package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveysense/backend/internal/llm"
)

type fakeGenerator struct {
	content  string
	err      error
	requests []llm.CompletionRequest
}

func (f *fakeGenerator) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

func TestSummarize(t *testing.T) {
	t.Run("empty partition returns the no-data line without a completion", func(t *testing.T) {
		fake := &fakeGenerator{content: "should not be called"}
		s := NewSummaryGenerator(fake)

		summary, err := s.Summarize(context.Background(), nil, "수업 만족도", "부정")

		require.NoError(t, err)
		assert.Equal(t, "'수업 만족도' 문항에는 부정 응답이 없습니다.", summary)
		assert.Empty(t, fake.requests)
	})

	t.Run("summarizes with warm temperature", func(t *testing.T) {
		fake := &fakeGenerator{content: "  설명이 쉽다는 의견이 많았습니다.  "}
		s := NewSummaryGenerator(fake)

		summary, err := s.Summarize(context.Background(),
			[]string{"설명이 쉬웠어요", "이해가 잘 됐어요"}, "수업 만족도", "긍정")

		require.NoError(t, err)
		assert.Equal(t, "설명이 쉽다는 의견이 많았습니다.", summary)
		require.Len(t, fake.requests, 1)
		assert.InDelta(t, 0.7, fake.requests[0].Temperature, 1e-6)
		assert.Contains(t, fake.requests[0].UserPrompt, "설명이 쉬웠어요 이해가 잘 됐어요")
		assert.Contains(t, fake.requests[0].UserPrompt, `"수업 만족도"`)
	})

	t.Run("completion failure propagates", func(t *testing.T) {
		fake := &fakeGenerator{err: errors.New("deployment unavailable")}
		s := NewSummaryGenerator(fake)

		summary, err := s.Summarize(context.Background(), []string{"응답"}, "시설", "부정")

		require.Error(t, err)
		assert.Empty(t, summary)
	})
}
