package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parley-ai/parley/internal/ai"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/extract"
	"github.com/parley-ai/parley/internal/filestore"
	"github.com/parley-ai/parley/internal/model"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, id int64) (*model.Document, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.Document, error)
	MarkReady(ctx context.Context, id int64, chunkCount int) error
	MarkError(ctx context.Context, id int64, message string) error
	Delete(ctx context.Context, id int64) error
}

type chunkIngestStore interface {
	SaveBatch(ctx context.Context, chunks []*model.DocumentChunk) error
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

type DocumentService struct {
	documents documentStore
	chunks    chunkIngestStore
	store     filestore.Store
	embedder  ai.IEmbedder
	cfg       config.ContextConfig
}

func NewDocumentService(
	documents documentStore,
	chunks chunkIngestStore,
	store filestore.Store,
	embedder ai.IEmbedder,
	cfg config.ContextConfig,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		chunks:    chunks,
		store:     store,
		embedder:  embedder,
		cfg:       cfg,
	}
}

// Upload ingests one document: extract text, persist the pending record,
// chunk, embed each chunk sequentially, then flip the status to ready or
// error. The document never stays pending after this returns. A chunk whose
// embedding call fails is kept without a vector; the backfill job retries it.
func (s *DocumentService) Upload(ctx context.Context, projectID int64, filename, mimeType string, data []byte) (*model.Document, error) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("project_id", projectID), zap.String("filename", filename))

	if int64(len(data)) > s.cfg.MaxDocumentFileSize {
		return nil, appErr.ErrFileTooLarge
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if !extract.IsSupported(filename, mimeType) {
		return nil, appErr.ErrUnsupportedFile
	}

	text, err := extract.Text(filename, data, s.cfg.MaxDocumentTextChars)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		ProjectID: projectID,
		Filename:  filename,
		MimeType:  mimeType,
		FileSize:  int64(len(data)),
		CharCount: int64(len(text)),
		Status:    model.DocumentStatusPending,
		Ctime:     time.Now().UnixMilli(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Save(ctx, fileKey(doc.ID, filename), bytes.NewReader(data), int64(len(data))); err != nil {
			logger.Warn("raw file save failed", zap.Int64("document_id", doc.ID), zap.Error(err))
		}
	}

	if err := s.ingest(ctx, doc, text); err != nil {
		logger.Error("document ingestion failed", zap.Int64("document_id", doc.ID), zap.Error(err))
		if markErr := s.documents.MarkError(ctx, doc.ID, err.Error()); markErr != nil {
			logger.Error("document status update failed", zap.Int64("document_id", doc.ID), zap.Error(markErr))
		}
		doc.Status = model.DocumentStatusError
		doc.ErrorMessage = err.Error()
		return doc, err
	}
	return doc, nil
}

func (s *DocumentService) ingest(ctx context.Context, doc *model.Document, text string) error {
	logger := logutil.GetLogger(ctx).With(zap.Int64("document_id", doc.ID))

	textChunks := ai.ChunkText(text, s.cfg.ChunkMaxSize, s.cfg.ChunkOverlap)
	chunks := make([]*model.DocumentChunk, 0, len(textChunks))
	for _, chunk := range textChunks {
		chunks = append(chunks, &model.DocumentChunk{
			DocumentID: doc.ID,
			ProjectID:  doc.ProjectID,
			ChunkIndex: chunk.Index,
			Content:    chunk.Content,
		})
	}
	if err := s.chunks.SaveBatch(ctx, chunks); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}

	embedded := 0
	for _, chunk := range chunks {
		if s.embedder == nil {
			break
		}
		emb, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			logger.Warn("chunk embedding failed", zap.Int("chunk_index", chunk.ChunkIndex), zap.Error(err))
			continue
		}
		if err := s.chunks.UpdateEmbedding(ctx, chunk.ID, emb); err != nil {
			logger.Warn("chunk embedding save failed", zap.Int("chunk_index", chunk.ChunkIndex), zap.Error(err))
			continue
		}
		embedded++
	}
	logger.Info("document ingested", zap.Int("chunks", len(chunks)), zap.Int("embedded", embedded))

	if err := s.documents.MarkReady(ctx, doc.ID, len(chunks)); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}
	doc.Status = model.DocumentStatusReady
	doc.ChunkCount = len(chunks)
	return nil
}

func (s *DocumentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	return s.documents.Get(ctx, id)
}

func (s *DocumentService) ListByProject(ctx context.Context, projectID int64) ([]model.Document, error) {
	return s.documents.ListByProject(ctx, projectID)
}

func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.documents.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, fileKey(doc.ID, doc.Filename)); err != nil {
			logutil.GetLogger(ctx).Warn("raw file delete failed", zap.Int64("document_id", id), zap.Error(err))
		}
	}
	return s.documents.Delete(ctx, id)
}

func fileKey(docID int64, filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	return fmt.Sprintf("doc-%d-%s", docID, base)
}
