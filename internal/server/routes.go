package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	// Wrap the mux with CORS middleware
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Replace "*" with specific origins if needed
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := json.Marshal(map[string]interface{}{
		"status": "ok",
		"rooms":  s.registry.RoomCount(),
	})
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		s.logger.Debug("health_write_failed", zap.Error(err))
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: make environment-specific
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	s.logger.Info("connection_open", zap.String("connection_id", connectionID))
	s.connectionManager.AddConnection(connectionID, socket)
	defer func() {
		s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.registry.HandleDisconnect(connectionID)
		s.logger.Info("connection_closed", zap.String("connection_id", connectionID))
	}()

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			s.logger.Debug("connection_read_error",
				zap.String("connection_id", connectionID),
				zap.Error(err),
			)
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, fmt.Errorf("RATE_LIMIT_EXCEEDED: Too many messages, slow down"))
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(socket, ctx, fmt.Errorf("INVALID_PAYLOAD: Invalid JSON"))
			continue
		}

		s.dispatchMessage(socket, ctx, connectionID, msg)
	}
}

// dispatchMessage routes one client message. A panicking handler is
// reported to the sender and never takes the process down.
func (s *Server) dispatchMessage(socket *websocket.Conn, ctx context.Context, connectionID string, msg ClientMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("handler_panic",
				zap.String("connection_id", connectionID),
				zap.String("message_type", msg.Type),
				zap.Any("panic", rec),
			)
			s.sendError(socket, ctx, ErrInternal)
		}
	}()

	switch msg.Type {
	case "ping":
		s.handlePing(socket, ctx, connectionID)

	case "create_match":
		s.handleCreateMatch(socket, ctx, connectionID, msg.Payload)

	case "join_match":
		s.handleJoinMatch(socket, ctx, connectionID, msg.Payload)

	case "submit_move":
		s.handleSubmitMove(socket, ctx, connectionID, msg.Payload)

	default:
		s.sendError(socket, ctx, fmt.Errorf("INVALID_MESSAGE_TYPE: Unknown message type '%s'", msg.Type))
	}
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, cause error) {
	response := ServerMessage{
		Type: "error",
		Payload: ErrorMessage{
			Message: cause.Error(),
			Code:    errorCode(cause),
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Debug("send_error_failed", zap.Error(err))
	}
}
