package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/storage/models"
	"github.com/surveysense/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS survey_runs (
		id TEXT PRIMARY KEY,
		column_count INTEGER NOT NULL,
		response_count INTEGER NOT NULL,
		overall_score REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON survey_runs(created_at);

	CREATE TABLE IF NOT EXISTS column_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		score REAL NOT NULL,
		response_count INTEGER NOT NULL,
		positive_count INTEGER NOT NULL,
		negative_count INTEGER NOT NULL,
		positive_summary TEXT,
		negative_summary TEXT,
		FOREIGN KEY (run_id) REFERENCES survey_runs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_column_results_run ON column_results(run_id);

	CREATE TABLE IF NOT EXISTS qna_history (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT,
		routed_columns TEXT,
		passage_count INTEGER NOT NULL,
		found INTEGER NOT NULL,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_qna_created ON qna_history(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertSurveyRun(run *models.SurveyRun) error {
	query := `INSERT INTO survey_runs (id, column_count, response_count, overall_score, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.ColumnCount,
		run.ResponseCount,
		run.OverallScore,
		run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert survey run: %w", err)
	}

	logger.Debug("Survey run recorded", zap.String("run_id", run.ID))
	return nil
}

func (c *Client) InsertColumnResult(result *models.ColumnResult) error {
	query := `
		INSERT INTO column_results (run_id, name, score, response_count, positive_count,
			negative_count, positive_summary, negative_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		result.RunID,
		result.Name,
		result.Score,
		result.ResponseCount,
		result.PositiveCount,
		result.NegativeCount,
		result.PositiveSummary,
		result.NegativeSummary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert column result: %w", err)
	}

	return nil
}

func (c *Client) InsertQnARecord(record *models.QnARecord) error {
	query := `
		INSERT INTO qna_history (id, question, answer, routed_columns, passage_count, found, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	found := 0
	if record.Found {
		found = 1
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.Question,
		record.Answer,
		record.RoutedColumns,
		record.PassageCount,
		found,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert qna record: %w", err)
	}

	logger.Debug("Question recorded", zap.String("qna_id", record.ID))
	return nil
}

func (c *Client) GetQnAHistory(limit int) ([]models.QnARecord, error) {
	query := `
		SELECT id, question, answer, routed_columns, passage_count, found, latency_ms, created_at
		FROM qna_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get qna history: %w", err)
	}
	defer rows.Close()

	var records []models.QnARecord
	for rows.Next() {
		var r models.QnARecord
		var found int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.Question, &r.Answer, &r.RoutedColumns, &r.PassageCount, &found, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Found = found == 1
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) GetLatestRun() (*models.SurveyRun, []models.ColumnResult, error) {
	var run models.SurveyRun
	var createdAt int64

	err := c.db.QueryRow(`
		SELECT id, column_count, response_count, overall_score, created_at
		FROM survey_runs ORDER BY created_at DESC LIMIT 1
	`).Scan(&run.ID, &run.ColumnCount, &run.ResponseCount, &run.OverallScore, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	run.CreatedAt = time.Unix(createdAt, 0)

	rows, err := c.db.Query(`
		SELECT run_id, name, score, response_count, positive_count, negative_count,
			positive_summary, negative_summary
		FROM column_results WHERE run_id = ? ORDER BY id
	`, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get column results: %w", err)
	}
	defer rows.Close()

	var results []models.ColumnResult
	for rows.Next() {
		var r models.ColumnResult
		err := rows.Scan(&r.RunID, &r.Name, &r.Score, &r.ResponseCount, &r.PositiveCount,
			&r.NegativeCount, &r.PositiveSummary, &r.NegativeSummary)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}

	return &run, results, rows.Err()
}
