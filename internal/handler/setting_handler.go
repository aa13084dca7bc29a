package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parley-ai/parley/internal/pkg/errcode"
	"github.com/parley-ai/parley/internal/pkg/response"
	"github.com/parley-ai/parley/internal/service"
)

type SettingHandler struct {
	settings *service.SettingService
}

func NewSettingHandler(settings *service.SettingService) *SettingHandler {
	return &SettingHandler{settings: settings}
}

func (h *SettingHandler) List(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, settings)
}

type settingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *SettingHandler) Set(c *gin.Context) {
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.settings.Set(c.Request.Context(), req.Key, req.Value); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
