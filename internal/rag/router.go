package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/llm"
	"github.com/surveysense/backend/pkg/logger"
)

// noMatchToken is the sentinel the router model returns when no candidate
// column relates to the question.
const noMatchToken = "NONE"

type generator interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// ColumnRouter maps a free-text question to the survey columns that are
// semantically related to it. Routing is a decision, not generation, so the
// call runs at zero temperature.
type ColumnRouter struct {
	client generator
}

func NewColumnRouter(client generator) *ColumnRouter {
	return &ColumnRouter{client: client}
}

// Route returns a subset of availableColumns, possibly empty. Column names
// the model invents are dropped; a completion failure propagates.
func (r *ColumnRouter) Route(ctx context.Context, question string, availableColumns []string) ([]string, error) {
	if len(availableColumns) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`당신은 설문 문항 라우터입니다.
아래 후보 문항 중에서 질문과 의미적으로 관련된 문항을 모두 골라
쉼표로 구분해 그대로 반환하세요. 단어가 정확히 일치하지 않아도
의미가 관련되면 선택하세요. 관련된 문항이 하나도 없으면 %s 만 반환하세요.

후보 문항: %s

질문: %s`, noMatchToken, strings.Join(availableColumns, ", "), question)

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  prompt,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("column routing failed: %w", err)
	}

	routed := parseRoutedColumns(resp.Content, availableColumns)

	logger.Debug("Question routed",
		zap.String("question", question),
		zap.Strings("columns", routed),
	)

	return routed, nil
}

func parseRoutedColumns(content string, availableColumns []string) []string {
	content = strings.TrimSpace(content)
	if content == "" || content == noMatchToken {
		return nil
	}

	available := make(map[string]struct{}, len(availableColumns))
	for _, col := range availableColumns {
		available[col] = struct{}{}
	}

	seen := make(map[string]struct{})
	var routed []string
	for _, part := range strings.Split(content, ",") {
		name := strings.TrimSpace(part)
		if name == "" || name == noMatchToken {
			continue
		}
		if _, ok := available[name]; !ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		routed = append(routed, name)
	}

	return routed
}
