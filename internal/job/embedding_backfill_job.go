package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parley-ai/parley/internal/ai"
	"github.com/parley-ai/parley/internal/model"
	"github.com/parley-ai/parley/internal/repo"
)

// EmbeddingBackfillJob retries messages and document chunks whose embedding
// call failed at write time. It runs only while the embedding provider answers
// its health probe, so a downed provider costs nothing but the probe.
type EmbeddingBackfillJob struct {
	messages   *repo.MessageRepo
	embeddings *repo.EmbeddingRepo
	chunks     *repo.ChunkRepo
	chats      *repo.ChatRepo
	embedder   ai.IEmbedder
	batchSize  int
}

func NewEmbeddingBackfillJob(
	messages *repo.MessageRepo,
	embeddings *repo.EmbeddingRepo,
	chunks *repo.ChunkRepo,
	chats *repo.ChatRepo,
	embedder ai.IEmbedder,
	batchSize int,
) *EmbeddingBackfillJob {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &EmbeddingBackfillJob{
		messages:   messages,
		embeddings: embeddings,
		chunks:     chunks,
		chats:      chats,
		embedder:   embedder,
		batchSize:  batchSize,
	}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.embedder == nil {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	if !j.embedder.IsAvailable(ctx) {
		logger.Info("embedding provider unavailable, skipping backfill")
		return nil
	}
	if err := j.backfillMessages(ctx); err != nil {
		return err
	}
	return j.backfillChunks(ctx)
}

func (j *EmbeddingBackfillJob) backfillMessages(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	msgs, err := j.messages.ListWithoutEmbedding(ctx, j.batchSize)
	if err != nil {
		return err
	}
	// One chat lookup per distinct chat in the batch.
	chatCache := make(map[int64]*model.Chat)
	done := 0
	for _, msg := range msgs {
		chat, ok := chatCache[msg.ChatID]
		if !ok {
			chat, err = j.chats.GetWithContext(ctx, msg.ChatID)
			if err != nil {
				logger.Warn("chat lookup failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
				continue
			}
			chatCache[msg.ChatID] = chat
		}
		emb, err := j.embedder.Embed(ctx, msg.Content)
		if err != nil {
			logger.Warn("message embedding failed", zap.Int64("message_id", msg.ID), zap.Error(err))
			continue
		}
		if err := j.embeddings.Save(ctx, &model.MessageEmbedding{
			MessageID: msg.ID,
			ChatID:    msg.ChatID,
			ProjectID: chat.ProjectID,
			Content:   msg.Content,
			Embedding: emb,
			Ctime:     time.Now().UnixMilli(),
		}); err != nil {
			logger.Warn("message embedding save failed", zap.Int64("message_id", msg.ID), zap.Error(err))
			continue
		}
		done++
	}
	if len(msgs) > 0 {
		logger.Info("message embeddings backfilled", zap.Int("pending", len(msgs)), zap.Int("done", done))
	}
	return nil
}

func (j *EmbeddingBackfillJob) backfillChunks(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	chunks, err := j.chunks.ListMissingEmbedding(ctx, j.batchSize)
	if err != nil {
		return err
	}
	done := 0
	for _, chunk := range chunks {
		emb, err := j.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			logger.Warn("chunk embedding failed", zap.Int64("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		if err := j.chunks.UpdateEmbedding(ctx, chunk.ID, emb); err != nil {
			logger.Warn("chunk embedding save failed", zap.Int64("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		done++
	}
	if len(chunks) > 0 {
		logger.Info("chunk embeddings backfilled", zap.Int("pending", len(chunks)), zap.Int("done", done))
	}
	return nil
}
