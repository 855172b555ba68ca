package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/rag"
	"github.com/surveysense/backend/internal/storage/sqlite"
	"github.com/surveysense/backend/pkg/logger"
)

type QnAHandler struct {
	engine *rag.Engine
	db     *sqlite.Client
}

func NewQnAHandler(engine *rag.Engine, db *sqlite.Client) *QnAHandler {
	return &QnAHandler{
		engine: engine,
		db:     db,
	}
}

func (h *QnAHandler) HandleQuestion(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	answer, err := h.engine.Ask(c.Context(), req.Question)
	if err != nil {
		logger.Error("Failed to answer question", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to answer question",
		})
	}

	return c.JSON(answer)
}

func (h *QnAHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	records, err := h.db.GetQnAHistory(limit)
	if err != nil {
		logger.Error("Failed to load qna history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
