package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/analysis"
	"github.com/surveysense/backend/internal/storage/sqlite"
	"github.com/surveysense/backend/pkg/logger"
)

type SurveyHandler struct {
	pipeline *analysis.Pipeline
	db       *sqlite.Client
}

func NewSurveyHandler(pipeline *analysis.Pipeline, db *sqlite.Client) *SurveyHandler {
	return &SurveyHandler{
		pipeline: pipeline,
		db:       db,
	}
}

// UploadSurvey ingests one survey: the request carries the already-parsed
// columns with their raw responses. The previous upload's index contents
// are wiped before the new one is analyzed.
func (h *SurveyHandler) UploadSurvey(c *fiber.Ctx) error {
	var req struct {
		Columns []analysis.ColumnInput `json:"columns"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.Columns) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one column is required",
		})
	}
	for _, col := range req.Columns {
		if col.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Every column needs a name",
			})
		}
	}

	result, err := h.pipeline.Run(c.Context(), req.Columns)
	if err != nil {
		logger.Error("Failed to ingest survey", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process survey",
		})
	}

	return c.JSON(result)
}

// GetLatestResults returns the most recent run's per-column scores and
// summaries.
func (h *SurveyHandler) GetLatestResults(c *fiber.Ctx) error {
	run, columns, err := h.db.GetLatestRun()
	if err != nil {
		logger.Error("Failed to load latest run", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load results",
		})
	}
	if run == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No survey has been processed yet",
		})
	}

	return c.JSON(fiber.Map{
		"run_id":         run.ID,
		"overall_score":  run.OverallScore,
		"column_count":   run.ColumnCount,
		"response_count": run.ResponseCount,
		"created_at":     run.CreatedAt.Unix(),
		"columns":        columns,
	})
}
