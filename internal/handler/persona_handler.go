package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parley-ai/parley/internal/pkg/errcode"
	"github.com/parley-ai/parley/internal/pkg/response"
	"github.com/parley-ai/parley/internal/service"
)

type PersonaHandler struct {
	personas *service.PersonaService
}

func NewPersonaHandler(personas *service.PersonaService) *PersonaHandler {
	return &PersonaHandler{personas: personas}
}

type personaRequest struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
}

func (h *PersonaHandler) Create(c *gin.Context) {
	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	persona, err := h.personas.Create(c.Request.Context(), req.Name, req.SystemPrompt)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, persona)
}

func (h *PersonaHandler) List(c *gin.Context) {
	personas, err := h.personas.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, personas)
}

func (h *PersonaHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.personas.Update(c.Request.Context(), id, req.Name, req.SystemPrompt); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *PersonaHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.personas.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
