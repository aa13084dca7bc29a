package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/parley-ai/parley/internal/pkg/errcode"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
	"github.com/parley-ai/parley/internal/pkg/response"
	"github.com/parley-ai/parley/internal/service"
)

type DocumentHandler struct {
	documents   *service.DocumentService
	maxFileSize int64
}

func NewDocumentHandler(documents *service.DocumentService, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{documents: documents, maxFileSize: maxFileSize}
}

// Upload accepts one multipart file under the "file" field and ingests it
// into the project named by the route.
func (h *DocumentHandler) Upload(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "file field required")
		return
	}
	if fileHeader.Size > h.maxFileSize {
		handleError(c, appErr.ErrFileTooLarge)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		handleError(c, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		handleError(c, err)
		return
	}
	mimeType := fileHeader.Header.Get("Content-Type")

	doc, err := h.documents.Upload(c.Request.Context(), projectID, fileHeader.Filename, mimeType, data)
	if err != nil {
		// Ingestion failures still produce a persisted document in error
		// state; surface it so the client can show the failure inline.
		if doc != nil {
			response.Success(c, doc)
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	docs, err := h.documents.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "document_id")
	if !ok {
		return
	}
	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "document_id")
	if !ok {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
