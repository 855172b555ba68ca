package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveysense/backend/internal/rag"
	"github.com/surveysense/backend/internal/searchindex"
	"github.com/surveysense/backend/internal/storage/models"
	"github.com/surveysense/backend/internal/storage/sqlite"
)

type stubLister struct{ columns []string }

func (s *stubLister) ListColumns(_ context.Context, _ int) ([]string, error) {
	return s.columns, nil
}

type stubRouter struct{ routed []string }

func (s *stubRouter) Route(_ context.Context, _ string, _ []string) ([]string, error) {
	return s.routed, nil
}

type stubRetriever struct{ passages []searchindex.Passage }

func (s *stubRetriever) Retrieve(_ context.Context, _ string, _ []string) []searchindex.Passage {
	return s.passages
}

type stubAnswerer struct{ text string }

func (s *stubAnswerer) Answer(_ context.Context, _ string, _ []searchindex.Passage) (string, error) {
	return s.text, nil
}

func newTestDB(t *testing.T) *sqlite.Client {
	t.Helper()
	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())
	return db
}

func newQnAApp(t *testing.T, passages []searchindex.Passage, db *sqlite.Client) *fiber.App {
	t.Helper()
	engine := rag.NewEngine(
		&stubLister{columns: []string{"수업 만족도"}},
		&stubRouter{routed: []string{"수업 만족도"}},
		&stubRetriever{passages: passages},
		&stubAnswerer{text: "만족도가 높았습니다."},
		db, nil, 200, time.Minute,
	)

	app := fiber.New()
	h := NewQnAHandler(engine, db)
	app.Post("/qna", h.HandleQuestion)
	app.Get("/qna/history", h.GetHistory)
	return app
}

func TestHandleQuestion(t *testing.T) {
	passages := []searchindex.Passage{
		{Column: "수업 만족도", Sentiment: "positive", Text: "좋았어요"},
	}

	t.Run("answers a question", func(t *testing.T) {
		app := newQnAApp(t, passages, newTestDB(t))

		body, _ := json.Marshal(map[string]string{"question": "수업은 어땠나요?"})
		req := httptest.NewRequest("POST", "/qna", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, 5000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var answer rag.Answer
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
		assert.True(t, answer.Found)
		assert.Equal(t, "만족도가 높았습니다.", answer.Answer)
		assert.Equal(t, []string{"수업 만족도"}, answer.RoutedColumns)
	})

	t.Run("no evidence reports found false", func(t *testing.T) {
		app := newQnAApp(t, nil, newTestDB(t))

		body, _ := json.Marshal(map[string]string{"question": "주차장은 어땠나요?"})
		req := httptest.NewRequest("POST", "/qna", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, 5000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var answer rag.Answer
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
		assert.False(t, answer.Found)
		assert.Empty(t, answer.Answer)
	})

	t.Run("missing question is a bad request", func(t *testing.T) {
		app := newQnAApp(t, passages, newTestDB(t))

		req := httptest.NewRequest("POST", "/qna", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, 5000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		app := newQnAApp(t, passages, newTestDB(t))

		req := httptest.NewRequest("POST", "/qna", bytes.NewReader([]byte(`{"question":`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, 5000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetHistory(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.InsertQnARecord(&models.QnARecord{
			ID:        string(rune('a' + i)),
			Question:  "질문",
			Found:     true,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	app := newQnAApp(t, nil, db)

	t.Run("limit query is honored", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/qna/history?limit=2", nil), 5000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			History []models.QnARecord `json:"history"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.History, 2)
	})

	t.Run("out-of-range limit falls back to the default", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/qna/history?limit=9999", nil), 5000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			History []models.QnARecord `json:"history"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.History, 3)
	})
}
