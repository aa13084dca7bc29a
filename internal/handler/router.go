package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parley-ai/parley/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Projects  *ProjectHandler
	Chats     *ChatHandler
	Documents *DocumentHandler
	Personas  *PersonaHandler
	Models    *ModelHandler
	Settings  *SettingHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/auth/status", deps.Auth.Status)
	api.POST("/auth/unlock", deps.Auth.Unlock)

	authGroup := api.Group("")
	if deps.Auth.Enabled() {
		authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	}

	authGroup.POST("/projects", deps.Projects.Create)
	authGroup.GET("/projects", deps.Projects.List)
	authGroup.GET("/projects/:id", deps.Projects.Get)
	authGroup.PUT("/projects/:id", deps.Projects.Rename)
	authGroup.DELETE("/projects/:id", deps.Projects.Delete)

	authGroup.POST("/projects/:id/documents", deps.Documents.Upload)
	authGroup.GET("/projects/:id/documents", deps.Documents.List)
	authGroup.GET("/documents/:document_id", deps.Documents.Get)
	authGroup.DELETE("/documents/:document_id", deps.Documents.Delete)

	authGroup.POST("/chats", deps.Chats.Create)
	authGroup.GET("/chats", deps.Chats.List)
	authGroup.GET("/chats/:id", deps.Chats.Get)
	authGroup.PUT("/chats/:id", deps.Chats.Rename)
	authGroup.PUT("/chats/:id/archive", deps.Chats.Archive)
	authGroup.PUT("/chats/:id/system-prompt", deps.Chats.SetSystemPrompt)
	authGroup.PUT("/chats/:id/persona", deps.Chats.SetPersona)
	authGroup.DELETE("/chats/:id/summary", deps.Chats.ClearSummary)
	authGroup.DELETE("/chats/:id", deps.Chats.Delete)

	authGroup.GET("/chats/:id/messages", deps.Chats.ListMessages)
	authGroup.DELETE("/messages/:message_id", deps.Chats.DeleteMessage)
	authGroup.GET("/chats/:id/context", deps.Chats.Context)

	sendGroup := authGroup.Group("")
	sendGroup.Use(middleware.RateLimit(time.Second))
	sendGroup.POST("/chats/:id/messages", deps.Chats.SendMessage)
	sendGroup.POST("/chats/:id/classify", deps.Chats.Classify)

	authGroup.POST("/personas", deps.Personas.Create)
	authGroup.GET("/personas", deps.Personas.List)
	authGroup.PUT("/personas/:id", deps.Personas.Update)
	authGroup.DELETE("/personas/:id", deps.Personas.Delete)

	authGroup.GET("/models/status", deps.Models.Status)
	authGroup.GET("/settings", deps.Settings.List)
	authGroup.PUT("/settings", deps.Settings.Set)
}
