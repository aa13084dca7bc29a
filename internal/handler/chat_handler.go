package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parley-ai/parley/internal/pkg/errcode"
	"github.com/parley-ai/parley/internal/pkg/response"
	"github.com/parley-ai/parley/internal/service"
)

type ChatHandler struct {
	chats  *service.ChatService
	topics *service.TopicService
}

func NewChatHandler(chats *service.ChatService, topics *service.TopicService) *ChatHandler {
	return &ChatHandler{chats: chats, topics: topics}
}

type chatCreateRequest struct {
	ProjectID    *int64  `json:"project_id"`
	PersonaID    *int64  `json:"persona_id"`
	Title        string  `json:"title"`
	SystemPrompt *string `json:"system_prompt"`
}

func (h *ChatHandler) Create(c *gin.Context) {
	var req chatCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	chat, err := h.chats.Create(c.Request.Context(), service.ChatCreateInput{
		ProjectID:    req.ProjectID,
		PersonaID:    req.PersonaID,
		Title:        req.Title,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chat)
}

func (h *ChatHandler) List(c *gin.Context) {
	var projectID *int64
	if value := c.Query("project_id"); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid project_id")
			return
		}
		projectID = &parsed
	}
	includeArchived := c.Query("include_archived") == "true"
	chats, err := h.chats.List(c.Request.Context(), projectID, includeArchived)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chats)
}

func (h *ChatHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	chat, err := h.chats.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chat)
}

type chatRenameRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) Rename(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req chatRenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.chats.Rename(c.Request.Context(), id, req.Title); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

func (h *ChatHandler) Archive(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.chats.SetArchived(c.Request.Context(), id, req.Archived); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type systemPromptRequest struct {
	SystemPrompt *string `json:"system_prompt"`
}

func (h *ChatHandler) SetSystemPrompt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req systemPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.chats.SetSystemPrompt(c.Request.Context(), id, req.SystemPrompt); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type setPersonaRequest struct {
	PersonaID *int64 `json:"persona_id"`
}

func (h *ChatHandler) SetPersona(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req setPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.chats.SetPersona(c.Request.Context(), id, req.PersonaID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ChatHandler) ClearSummary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.chats.ClearSummary(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ChatHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.chats.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	messages, err := h.chats.ListMessages(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, messages)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	reply, err := h.chats.SendMessage(c.Request.Context(), id, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, reply)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	id, ok := parseIDParam(c, "message_id")
	if !ok {
		return
	}
	if err := h.chats.DeleteMessage(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Context returns the assembled model context for a chat, including the
// enrichment report. Debug surface for tuning retrieval thresholds.
func (h *ChatHandler) Context(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assembled, err := h.chats.AssembleContext(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, assembled)
}

func (h *ChatHandler) Classify(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	topics, cached, err := h.topics.Classify(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"topics": topics, "cached": cached})
}
