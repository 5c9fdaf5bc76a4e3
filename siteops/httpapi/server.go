// Package httpapi exposes the assistant over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/siteops/siteops/assistant"
	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/inference"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Assistant is the orchestrator surface the handlers use.
// *assistant.Orchestrator satisfies it.
type Assistant interface {
	Chat(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatReply, error)
	CreateConversation(ctx context.Context, ownerID, title, model string) (*ports.Conversation, error)
	ListConversations(ctx context.Context, ownerID string) ([]ports.Conversation, error)
	GetMessages(ctx context.Context, ownerID, conversationID string) ([]ports.Message, error)
	DeleteConversation(ctx context.Context, ownerID, conversationID string) error
	ExecuteTool(ctx context.Context, ownerID, conversationID, name string, params map[string]any) (ports.InvocationResult, error)
	ExecuteTools(ctx context.Context, ownerID, conversationID string, calls []ports.ToolCall) ([]ports.InvocationResult, error)
	ListTools() []ports.ToolDescriptor
	ListModels(ctx context.Context) []inference.ModelDescriptor
	PullModel(ctx context.Context, name string, onProgress func(inference.PullProgress)) (bool, error)
	DeleteModel(ctx context.Context, name string) (bool, error)
	Available(ctx context.Context) bool
}

var _ Assistant = (*assistant.Orchestrator)(nil)

// Server routes HTTP requests to the assistant.
type Server struct {
	assistant Assistant
	logger    zerolog.Logger
	engine    *gin.Engine
}

// NewServer builds the gin engine. mode is a gin mode; empty keeps the current one.
func NewServer(a Assistant, logger zerolog.Logger, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}
	s := &Server{
		assistant: a,
		logger:    logger,
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery(), RequestLogger(logger), CORS())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	authed := api.Group("").Use(RequireUser())
	{
		authed.GET("/models", s.handleListModels)
		authed.POST("/models/pull", s.handlePullModel)
		authed.DELETE("/models/*name", s.handleDeleteModel)

		authed.GET("/tools", s.handleListTools)
		authed.POST("/tools/execute", s.handleExecuteTool)
		authed.POST("/tools/batch", s.handleExecuteTools)

		authed.POST("/chat", s.handleChat)

		authed.GET("/conversations", s.handleListConversations)
		authed.POST("/conversations", s.handleCreateConversation)
		authed.GET("/conversations/:id/messages", s.handleGetMessages)
		authed.DELETE("/conversations/:id", s.handleDeleteConversation)
	}
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
