package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parley-ai/parley/internal/repo"
	"github.com/parley-ai/parley/internal/service"
)

// sweepLimit caps how many chats one sweep inspects.
const sweepLimit = 200

// ChatSummaryJob sweeps active chats and folds overgrown histories into their
// rolling summaries, catching chats whose inline summarization failed.
type ChatSummaryJob struct {
	chats   *repo.ChatRepo
	service *service.ChatService
}

func NewChatSummaryJob(chats *repo.ChatRepo, chatService *service.ChatService) *ChatSummaryJob {
	return &ChatSummaryJob{chats: chats, service: chatService}
}

func (j *ChatSummaryJob) Name() string {
	return "chat_summary"
}

func (j *ChatSummaryJob) Run(ctx context.Context) error {
	if j.service == nil {
		return nil
	}
	chats, err := j.chats.ListActive(ctx, sweepLimit)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	for _, chat := range chats {
		if err := j.service.SummarizeIfNeeded(ctx, chat.ID); err != nil {
			logger.Warn("chat summarization failed", zap.Int64("chat_id", chat.ID), zap.Error(err))
		}
	}
	return nil
}
