package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string) {
	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Debug("pong_failed",
			zap.String("connection_id", connectionID),
			zap.Error(err),
		)
	}
}

func (s *Server) handleCreateMatch(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateMatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, fmt.Errorf("INVALID_PAYLOAD: Invalid create_match payload"))
		return
	}

	roomID, side, err := s.registry.CreateMatch(connectionID, strings.TrimSpace(req.PlayerName))
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	response := ServerMessage{
		Type: "match_created",
		Payload: MatchCreatedResponse{
			RoomID: roomID,
			Side:   side,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Debug("match_created_send_failed", zap.Error(err))
	}
}

func (s *Server) handleJoinMatch(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinMatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, fmt.Errorf("INVALID_PAYLOAD: Invalid join_match payload"))
		return
	}

	// The registry broadcasts match_start to both seats as part of the join,
	// so the joiner sees match_start before match_joined.
	side, err := s.registry.JoinMatch(req.RoomID, connectionID, strings.TrimSpace(req.PlayerName))
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	response := ServerMessage{
		Type: "match_joined",
		Payload: MatchJoinedResponse{
			RoomID: NormalizeRoomID(req.RoomID),
			Side:   side,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Debug("match_joined_send_failed", zap.Error(err))
	}
}

func (s *Server) handleSubmitMove(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req SubmitMoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, fmt.Errorf("INVALID_PAYLOAD: Invalid submit_move payload"))
		return
	}

	// Success is broadcast by the registry as move_applied to both seats.
	if err := s.registry.SubmitMove(req.RoomID, connectionID, req.From, req.To); err != nil {
		s.sendError(socket, ctx, err)
	}
}
