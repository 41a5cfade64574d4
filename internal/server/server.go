package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gambit-server/internal/config"
	"gambit-server/internal/history"
)

type Server struct {
	port              int
	logger            *zap.Logger
	connectionManager *ConnectionManager
	registry          *RoomRegistry
	rateLimiter       *RateLimiter
	archive           *history.Repository
}

// NewServer wires the match server and the http.Server that fronts it. The
// custom server is returned alongside so main can run its shutdown logic.
func NewServer(cfg config.Config, logger *zap.Logger, archive *history.Repository) (*Server, *http.Server) {
	s := &Server{
		port:              cfg.Port,
		logger:            logger,
		connectionManager: NewConnectionManager(),
		rateLimiter:       NewRateLimiter(20, time.Second),
		archive:           archive,
	}
	s.registry = NewRoomRegistry(cfg, s, archive, logger)

	go s.limiterCleanupTask()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, httpServer
}

// Send implements Messenger. A failed write is only logged; the dead socket
// gets cleaned up by its own read loop.
func (s *Server) Send(connectionID string, message ServerMessage) {
	conn := s.connectionManager.GetConnection(connectionID)
	if conn == nil {
		return
	}
	if err := s.sendMessage(conn, context.Background(), message); err != nil {
		s.logger.Debug("send_failed",
			zap.String("connection_id", connectionID),
			zap.Error(err),
		)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.registry.Shutdown()
	if s.archive != nil {
		s.archive.Close()
	}
	return nil
}

// limiterCleanupTask drops rate limit state for idle connections.
func (s *Server) limiterCleanupTask() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.rateLimiter.Cleanup()
	}
}
