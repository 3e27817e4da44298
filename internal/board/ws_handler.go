package board

import (
	"encoding/json"
	"fmt"

	"github.com/yegors/vatsim-board/internal/websocket"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// WebSocketHandler handles incoming WebSocket messages for the board service
type WebSocketHandler struct {
	service *Service
	logger  *logger.Logger
}

// NewWebSocketHandler creates a WebSocket message handler backed by the board
// service
func NewWebSocketHandler(service *Service, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  log.Named("board-ws"),
	}
}

// HandleMessage dispatches one incoming client message
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data json.RawMessage) error {
	switch messageType {
	case websocket.MessageTypeRefreshRequest:
		// The completed cycle broadcasts to every client, including the
		// requester
		if _, err := h.service.RefreshNow(); err != nil {
			return fmt.Errorf("refresh request failed: %w", err)
		}
		return nil
	default:
		h.logger.Debug("Ignoring unknown message type", logger.String("type", messageType))
		return nil
	}
}
