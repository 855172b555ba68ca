package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/searchindex"
	"github.com/surveysense/backend/pkg/logger"
)

type searcher interface {
	Search(ctx context.Context, query searchindex.SearchQuery) ([]searchindex.Passage, error)
}

// Retriever collects response passages for a question. Retrieval failure is
// never an error to the caller; it degrades to zero evidence.
type Retriever struct {
	index        searcher
	topPerColumn int
}

func NewRetriever(index searcher, topPerColumn int) *Retriever {
	if topPerColumn <= 0 {
		topPerColumn = 5
	}
	return &Retriever{index: index, topPerColumn: topPerColumn}
}

// Retrieve runs one filtered wildcard search per routed column; the filter
// does the narrowing, not the search text. Without routed columns it falls
// back to a single unfiltered search with the literal question. Passages
// are deduplicated by exact text, first seen wins.
func (r *Retriever) Retrieve(ctx context.Context, question string, routedColumns []string) []searchindex.Passage {
	var collected []searchindex.Passage

	if len(routedColumns) > 0 {
		for _, column := range routedColumns {
			hits, err := r.index.Search(ctx, searchindex.SearchQuery{
				Search:       "*",
				Top:          r.topPerColumn,
				ColumnFilter: column,
			})
			if err != nil {
				logger.Warn("Column search failed",
					zap.Error(err),
					zap.String("column", column),
				)
				continue
			}
			collected = append(collected, hits...)
		}
	} else {
		hits, err := r.index.Search(ctx, searchindex.SearchQuery{
			Search: question,
			Top:    r.topPerColumn,
		})
		if err != nil {
			logger.Warn("Fallback search failed", zap.Error(err))
			return nil
		}
		collected = hits
	}

	return dedupeByText(collected)
}

func dedupeByText(passages []searchindex.Passage) []searchindex.Passage {
	seen := make(map[string]struct{}, len(passages))
	out := make([]searchindex.Passage, 0, len(passages))
	for _, p := range passages {
		if _, ok := seen[p.Text]; ok {
			continue
		}
		seen[p.Text] = struct{}{}
		out = append(out, p)
	}
	return out
}
