package httpapi

import (
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/siteops/siteops/assistant"
	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/inference"
	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message" binding:"required"`
	Model          string `json:"model" binding:"required"`
	ImageURL       string `json:"imageUrl"`
	AudioURL       string `json:"audioUrl"`
}

type executeToolRequest struct {
	ToolName       string         `json:"toolName" binding:"required"`
	Parameters     map[string]any `json:"parameters"`
	ConversationID string         `json:"conversationId"`
}

type executeToolsRequest struct {
	Calls          []ports.ToolCall `json:"calls" binding:"required"`
	ConversationID string           `json:"conversationId"`
}

type pullModelRequest struct {
	ModelName string `json:"modelName" binding:"required"`
}

type createConversationRequest struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

func (s *Server) handleHealth(c *gin.Context) {
	respondSuccess(c, "ok", gin.H{"inference": s.assistant.Available(c.Request.Context())})
}

func (s *Server) handleListModels(c *gin.Context) {
	models := s.assistant.ListModels(c.Request.Context())
	respondSuccess(c, "", gin.H{"models": models})
}

func (s *Server) handlePullModel(c *gin.Context) {
	var req pullModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var last inference.PullProgress
	ok, err := s.assistant.PullModel(c.Request.Context(), req.ModelName, func(p inference.PullProgress) {
		last = p
		s.logger.Debug().Str("model", req.ModelName).Str("status", p.Status).Float64("percent", p.Percent()).Msg("Pull progress")
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		respondError(c, status, "failed to pull model", err)
		return
	}
	respondSuccess(c, "model pulled", gin.H{"modelName": req.ModelName, "success": ok, "status": last.Status})
}

// handleDeleteModel takes the rest of the path as the name so namespaced
// models such as hf.co/org/model resolve.
func (s *Server) handleDeleteModel(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")
	if name == "" {
		respondError(c, http.StatusBadRequest, "model name is required", nil)
		return
	}
	ok, err := s.assistant.DeleteModel(c.Request.Context(), name)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		respondError(c, status, "failed to delete model", err)
		return
	}
	if !ok {
		respondError(c, http.StatusNotFound, "model not found", nil)
		return
	}
	respondSuccess(c, "model deleted", gin.H{"modelName": name})
}

func (s *Server) handleListTools(c *gin.Context) {
	respondSuccess(c, "", gin.H{"tools": s.assistant.ListTools()})
}

// handleExecuteTool answers 200 for every dispatch; the envelope carries
// the tool's own success.
func (s *Server) handleExecuteTool(c *gin.Context) {
	var req executeToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := s.assistant.ExecuteTool(c.Request.Context(), c.GetString(userIDKey), req.ConversationID, req.ToolName, req.Parameters)
	if err != nil {
		respondError(c, statusFor(err), "failed to execute tool", err)
		return
	}
	c.JSON(http.StatusOK, UnifiedResponse{
		Code:    http.StatusOK,
		Success: result.Success,
		Data:    result,
		Error:   result.Error,
	})
}

// handleExecuteTools runs several calls at once. Envelopes come back in
// call order and success is true only when every call succeeded.
func (s *Server) handleExecuteTools(c *gin.Context) {
	var req executeToolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	results, err := s.assistant.ExecuteTools(c.Request.Context(), c.GetString(userIDKey), req.ConversationID, req.Calls)
	if err != nil {
		respondError(c, statusFor(err), "failed to execute tools", err)
		return
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	c.JSON(http.StatusOK, UnifiedResponse{
		Code:    http.StatusOK,
		Success: failed == 0,
		Data:    gin.H{"results": results, "failed": failed},
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	reply, err := s.assistant.Chat(c.Request.Context(), assistant.ChatRequest{
		ConversationID: req.ConversationID,
		OwnerID:        c.GetString(userIDKey),
		Message:        req.Message,
		Model:          req.Model,
		ImageURL:       req.ImageURL,
		AudioURL:       req.AudioURL,
	})
	if err != nil {
		respondError(c, statusFor(err), "chat failed", err)
		return
	}
	respondSuccess(c, "", reply)
}

func (s *Server) handleListConversations(c *gin.Context) {
	convs, err := s.assistant.ListConversations(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		respondError(c, statusFor(err), "failed to list conversations", err)
		return
	}
	respondSuccess(c, "", gin.H{"conversations": convs})
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	var req createConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	conv, err := s.assistant.CreateConversation(c.Request.Context(), c.GetString(userIDKey), req.Title, req.Model)
	if err != nil {
		respondError(c, statusFor(err), "failed to create conversation", err)
		return
	}
	respond(c, http.StatusCreated, "conversation created", conv)
}

func (s *Server) handleGetMessages(c *gin.Context) {
	msgs, err := s.assistant.GetMessages(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	if err != nil {
		respondError(c, statusFor(err), "failed to get messages", err)
		return
	}
	respondSuccess(c, "", gin.H{"messages": msgs})
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	if err := s.assistant.DeleteConversation(c.Request.Context(), c.GetString(userIDKey), c.Param("id")); err != nil {
		respondError(c, statusFor(err), "failed to delete conversation", err)
		return
	}
	respondSuccess(c, "conversation deleted", gin.H{"conversationId": c.Param("id")})
}
