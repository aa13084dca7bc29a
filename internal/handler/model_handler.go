package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parley-ai/parley/internal/ai"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/pkg/response"
)

// ModelHandler reports which providers are configured and whether the
// embedding provider currently answers its health probe.
type ModelHandler struct {
	cfg      config.AIConfig
	embedder ai.IEmbedder
}

func NewModelHandler(cfg config.AIConfig, embedder ai.IEmbedder) *ModelHandler {
	return &ModelHandler{cfg: cfg, embedder: embedder}
}

func (h *ModelHandler) Status(c *gin.Context) {
	embeddingAvailable := false
	embeddingModel := ""
	if h.embedder != nil {
		embeddingAvailable = h.embedder.IsAvailable(c.Request.Context())
		embeddingModel = h.embedder.ModelName()
	}
	response.Success(c, gin.H{
		"chat_provider":       h.cfg.Chat.Provider,
		"chat_model":          h.cfg.Chat.Model,
		"embedding_provider":  h.cfg.Embedding.Provider,
		"embedding_model":     embeddingModel,
		"embedding_available": embeddingAvailable,
	})
}
