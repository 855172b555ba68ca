package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/rag"
	"github.com/surveysense/backend/pkg/logger"
)

// WebSocketHandler answers questions over a socket, streaming the answer
// word by word so a chat UI can render it incrementally.
type WebSocketHandler struct {
	engine *rag.Engine
}

func NewWebSocketHandler(engine *rag.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "question" || strings.TrimSpace(msg.Content) == "" {
			continue
		}

		if err := h.streamAnswer(c, msg.Content); err != nil {
			logger.Error("Failed to stream answer", zap.Error(err))
			h.send(c, map[string]interface{}{
				"type":  "error",
				"error": "Failed to answer question",
			})
		}
	}
}

func (h *WebSocketHandler) streamAnswer(c *websocket.Conn, question string) error {
	h.send(c, map[string]interface{}{
		"type":    "status",
		"content": "답변을 생성 중입니다...",
	})

	answer, err := h.engine.Ask(context.Background(), question)
	if err != nil {
		return err
	}

	if answer.Found {
		words := strings.Fields(answer.Answer)
		for i, word := range words {
			chunk := word
			if i < len(words)-1 {
				chunk += " "
			}
			if err := h.send(c, map[string]interface{}{
				"type":    "chunk",
				"content": chunk,
			}); err != nil {
				return err
			}
		}
	}

	return h.send(c, map[string]interface{}{
		"type":           "complete",
		"message_id":     answer.ID,
		"found":          answer.Found,
		"routed_columns": answer.RoutedColumns,
		"passages":       answer.Passages,
		"latency_ms":     answer.LatencyMS,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msg map[string]interface{}) error {
	return c.WriteJSON(msg)
}
