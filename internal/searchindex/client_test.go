package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, "test-key", "survey-responses", "2023-11-01", "ko-kr", 5)
}

func decodeIndexPayload(t *testing.T, r *http.Request) []indexAction {
	t.Helper()
	var payload indexPayload
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	return payload.Value
}

func TestUpsert(t *testing.T) {
	t.Run("writes mergeOrUpload batches of ten", func(t *testing.T) {
		var batches [][]indexAction
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/indexes/survey-responses/docs/index", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("api-key"))
			batches = append(batches, decodeIndexPayload(t, r))
			w.Write([]byte(`{"value": []}`))
		}))
		defer srv.Close()

		docs := make([]Document, 23)
		for i := range docs {
			docs[i] = Document{
				ID:        fmt.Sprintf("doc-%d", i),
				Column:    "수업 만족도",
				Sentiment: "positive",
				Text:      fmt.Sprintf("응답 %d", i),
			}
		}

		results := newTestClient(srv).Upsert(context.Background(), docs)

		require.Len(t, results, 3)
		require.Len(t, batches, 3)
		assert.Len(t, batches[0], 10)
		assert.Len(t, batches[1], 10)
		assert.Len(t, batches[2], 3)
		for _, batch := range batches {
			for _, action := range batch {
				assert.Equal(t, "mergeOrUpload", action.Action)
			}
		}
		assert.Equal(t, "doc-20", batches[2][0].ID)
		for _, res := range results {
			assert.Equal(t, http.StatusOK, res.StatusCode)
		}
	})

	t.Run("failed batch is reported and later batches still run", func(t *testing.T) {
		call := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			call++
			if call == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error": "throttled"}`))
				return
			}
			w.Write([]byte(`{"value": []}`))
		}))
		defer srv.Close()

		docs := make([]Document, 15)
		for i := range docs {
			docs[i] = Document{ID: fmt.Sprintf("doc-%d", i), Text: "응답"}
		}

		results := newTestClient(srv).Upsert(context.Background(), docs)

		require.Len(t, results, 2)
		assert.Equal(t, http.StatusServiceUnavailable, results[0].StatusCode)
		assert.Contains(t, results[0].Body, "throttled")
		assert.Equal(t, http.StatusOK, results[1].StatusCode)
		assert.Equal(t, 2, call)
	})

	t.Run("transport failure records status zero", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // connection refused from here on

		results := newTestClient(srv).Upsert(context.Background(), []Document{{ID: "doc-0"}})

		require.Len(t, results, 1)
		assert.Equal(t, 0, results[0].StatusCode)
		assert.NotEmpty(t, results[0].Body)
	})

	t.Run("no documents means no requests", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		}))
		defer srv.Close()

		results := newTestClient(srv).Upsert(context.Background(), nil)
		assert.Empty(t, results)
	})
}

func TestClearAll(t *testing.T) {
	t.Run("pages through ids until the index is empty", func(t *testing.T) {
		pages := [][]string{
			{"a", "b", "c"},
			{"d"},
			{},
		}
		searchCall := 0
		var deleted []string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/indexes/survey-responses/docs/search":
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "*", body["search"])
				assert.Equal(t, float64(1000), body["top"])
				assert.Equal(t, "id", body["select"])

				ids := pages[searchCall]
				searchCall++
				values := make([]map[string]string, len(ids))
				for i, id := range ids {
					values[i] = map[string]string{"id": id}
				}
				json.NewEncoder(w).Encode(map[string]interface{}{"value": values})
			case "/indexes/survey-responses/docs/index":
				for _, action := range decodeIndexPayload(t, r) {
					assert.Equal(t, "delete", action.Action)
					deleted = append(deleted, action.ID)
				}
				w.Write([]byte(`{"value": []}`))
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		count, err := newTestClient(srv).ClearAll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 4, count)
		assert.Equal(t, []string{"a", "b", "c", "d"}, deleted)
		assert.Equal(t, 3, searchCall)
	})

	t.Run("delete failure stops the loop and keeps the partial count", func(t *testing.T) {
		searchCall := 0
		deleteCall := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/indexes/survey-responses/docs/search":
				searchCall++
				json.NewEncoder(w).Encode(map[string]interface{}{
					"value": []map[string]string{{"id": fmt.Sprintf("id-%d", searchCall)}},
				})
			case "/indexes/survey-responses/docs/index":
				deleteCall++
				if deleteCall == 2 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.Write([]byte(`{"value": []}`))
			}
		}))
		defer srv.Close()

		count, err := newTestClient(srv).ClearAll(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete batch")
		assert.Equal(t, 1, count)
	})

	t.Run("enumeration failure reports zero", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		count, err := newTestClient(srv).ClearAll(context.Background())

		require.Error(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestListColumns(t *testing.T) {
	t.Run("distinct non-empty columns in first-seen order", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "*", body["search"])
			assert.Equal(t, float64(200), body["top"])
			assert.Equal(t, "column", body["select"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []map[string]string{
					{"column": "수업 만족도"},
					{"column": "시설"},
					{"column": "수업 만족도"},
					{"column": ""},
					{"column": "강사"},
				},
			})
		}))
		defer srv.Close()

		columns, err := newTestClient(srv).ListColumns(context.Background(), 200)

		require.NoError(t, err)
		assert.Equal(t, []string{"수업 만족도", "시설", "강사"}, columns)
	})

	t.Run("non-success status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		columns, err := newTestClient(srv).ListColumns(context.Background(), 200)

		require.Error(t, err)
		assert.Nil(t, columns)
	})
}

func TestSearch(t *testing.T) {
	t.Run("sends a semantic query with a column filter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "*", body["search"])
			assert.Equal(t, float64(5), body["top"])
			assert.Equal(t, "semantic", body["queryType"])
			assert.Equal(t, "ko-kr", body["queryLanguage"])
			assert.Equal(t, "default", body["semanticConfiguration"])
			assert.Equal(t, "column eq '수업 만족도'", body["filter"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []map[string]string{
					{"column": "수업 만족도", "sentiment": "positive", "text": "아주 좋았어요"},
				},
			})
		}))
		defer srv.Close()

		passages, err := newTestClient(srv).Search(context.Background(), SearchQuery{
			Search:       "*",
			Top:          5,
			ColumnFilter: "수업 만족도",
		})

		require.NoError(t, err)
		require.Len(t, passages, 1)
		assert.Equal(t, Passage{Column: "수업 만족도", Sentiment: "positive", Text: "아주 좋았어요"}, passages[0])
	})

	t.Run("blank search falls back to wildcard and omits the filter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "*", body["search"])
			_, hasFilter := body["filter"]
			assert.False(t, hasFilter)
			w.Write([]byte(`{"value": []}`))
		}))
		defer srv.Close()

		passages, err := newTestClient(srv).Search(context.Background(), SearchQuery{Search: "   ", Top: 3})

		require.NoError(t, err)
		assert.Empty(t, passages)
	})

	t.Run("quotes in filter values are doubled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "column eq '강사''s 평가' and sentiment eq 'negative'", body["filter"])
			w.Write([]byte(`{"value": []}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv).Search(context.Background(), SearchQuery{
			Search:          "강의 평가",
			Top:             5,
			ColumnFilter:    "강사's 평가",
			SentimentFilter: "negative",
		})

		require.NoError(t, err)
	})

	t.Run("non-success status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		passages, err := newTestClient(srv).Search(context.Background(), SearchQuery{Search: "질문", Top: 5})

		require.Error(t, err)
		assert.Nil(t, passages)
	})
}
