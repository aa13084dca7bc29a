package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parley-ai/parley/internal/ai"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/model"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
	"github.com/parley-ai/parley/internal/repo"
)

var ErrAIUnavailable = ai.ErrUnavailable

type ChatService struct {
	chats      *repo.ChatRepo
	messages   *repo.MessageRepo
	embeddings *repo.EmbeddingRepo
	personas   *repo.PersonaRepo
	assembler  *ContextService
	generator  ai.IGenerator
	embedder   ai.IEmbedder
	cfg        config.ContextConfig
}

func NewChatService(
	chats *repo.ChatRepo,
	messages *repo.MessageRepo,
	embeddings *repo.EmbeddingRepo,
	personas *repo.PersonaRepo,
	assembler *ContextService,
	generator ai.IGenerator,
	embedder ai.IEmbedder,
	cfg config.ContextConfig,
) *ChatService {
	return &ChatService{
		chats:      chats,
		messages:   messages,
		embeddings: embeddings,
		personas:   personas,
		assembler:  assembler,
		generator:  generator,
		embedder:   embedder,
		cfg:        cfg,
	}
}

type ChatCreateInput struct {
	ProjectID    *int64
	PersonaID    *int64
	Title        string
	SystemPrompt *string
}

func (s *ChatService) Create(ctx context.Context, input ChatCreateInput) (*model.Chat, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, appErr.ErrInvalid
	}
	systemPrompt := input.SystemPrompt
	if systemPrompt == nil && input.PersonaID != nil {
		persona, err := s.personas.Get(ctx, *input.PersonaID)
		if err != nil {
			return nil, err
		}
		systemPrompt = &persona.SystemPrompt
	}
	chat := &model.Chat{
		ProjectID:    input.ProjectID,
		PersonaID:    input.PersonaID,
		Title:        title,
		SystemPrompt: systemPrompt,
		Ctime:        time.Now().UnixMilli(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) Get(ctx context.Context, id int64) (*model.Chat, error) {
	return s.chats.GetWithContext(ctx, id)
}

func (s *ChatService) List(ctx context.Context, projectID *int64, includeArchived bool) ([]model.Chat, error) {
	return s.chats.List(ctx, projectID, includeArchived)
}

func (s *ChatService) Rename(ctx context.Context, id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return appErr.ErrInvalid
	}
	return s.chats.Rename(ctx, id, title)
}

func (s *ChatService) SetArchived(ctx context.Context, id int64, archived bool) error {
	return s.chats.SetArchived(ctx, id, archived)
}

func (s *ChatService) SetSystemPrompt(ctx context.Context, id int64, prompt *string) error {
	if prompt != nil {
		trimmed := strings.TrimSpace(*prompt)
		if trimmed == "" {
			prompt = nil
		} else {
			prompt = &trimmed
		}
	}
	return s.chats.UpdateSystemPrompt(ctx, id, prompt)
}

// SetPersona assigns a persona and adopts its system prompt as the chat's.
func (s *ChatService) SetPersona(ctx context.Context, id int64, personaID *int64) error {
	if personaID == nil {
		return s.chats.UpdatePersona(ctx, id, nil)
	}
	persona, err := s.personas.Get(ctx, *personaID)
	if err != nil {
		return err
	}
	if err := s.chats.UpdatePersona(ctx, id, personaID); err != nil {
		return err
	}
	return s.chats.UpdateSystemPrompt(ctx, id, &persona.SystemPrompt)
}

// ClearSummary drops the rolling summary and its cutoff, so the next
// assembly sees the full recent history again.
func (s *ChatService) ClearSummary(ctx context.Context, id int64) error {
	if _, err := s.chats.GetWithContext(ctx, id); err != nil {
		return err
	}
	return s.chats.ClearSummary(ctx, id)
}

func (s *ChatService) Delete(ctx context.Context, id int64) error {
	return s.chats.Delete(ctx, id)
}

func (s *ChatService) ListMessages(ctx context.Context, chatID int64) ([]model.Message, error) {
	return s.messages.ListByChat(ctx, chatID)
}

func (s *ChatService) DeleteMessage(ctx context.Context, id int64) error {
	return s.messages.Delete(ctx, id)
}

// AssembleContext exposes the raw assembly for the context debug endpoint.
func (s *ChatService) AssembleContext(ctx context.Context, chatID int64) (*AssembledContext, error) {
	history, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(ctx, chatID, toIncoming(history))
}

// SendMessage runs one chat turn: persist the user message, assemble context,
// invoke the model, persist the reply, then embed both turns best-effort.
func (s *ChatService) SendMessage(ctx context.Context, chatID int64, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, appErr.ErrInvalid
	}
	chat, err := s.chats.GetWithContext(ctx, chatID)
	if err != nil {
		return nil, err
	}

	userMsg := &model.Message{
		ChatID:  chatID,
		Role:    model.RoleUser,
		Content: content,
		Ctime:   time.Now().UnixMilli(),
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	history, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	assembled, err := s.assembler.Assemble(ctx, chatID, toIncoming(history))
	if err != nil {
		return nil, err
	}

	reply, err := s.generator.Generate(ctx, assembled.System, assembled.Messages)
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("empty model response")
	}

	assistantMsg := &model.Message{
		ChatID:  chatID,
		Role:    model.RoleAssistant,
		Content: reply,
		Ctime:   time.Now().UnixMilli(),
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return nil, err
	}

	s.embedAndStore(ctx, chat, userMsg)
	s.embedAndStore(ctx, chat, assistantMsg)

	if err := s.SummarizeIfNeeded(ctx, chatID); err != nil {
		logutil.GetLogger(ctx).Warn("rolling summary update failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return assistantMsg, nil
}

// embedAndStore saves an embedding record for one message. Failures only cost
// future retrieval quality, so they are logged and dropped; the backfill job
// retries them later.
func (s *ChatService) embedAndStore(ctx context.Context, chat *model.Chat, msg *model.Message) {
	if s.embedder == nil {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.Int64("chat_id", chat.ID), zap.Int64("message_id", msg.ID))
	emb, err := s.embedder.Embed(ctx, msg.Content)
	if err != nil {
		logger.Warn("message embedding failed", zap.Error(err))
		return
	}
	if err := s.embeddings.Save(ctx, &model.MessageEmbedding{
		MessageID: msg.ID,
		ChatID:    chat.ID,
		ProjectID: chat.ProjectID,
		Content:   msg.Content,
		Embedding: emb,
		Ctime:     time.Now().UnixMilli(),
	}); err != nil {
		logger.Warn("message embedding save failed", zap.Error(err))
	}
}

// SummarizeIfNeeded folds older turns into the rolling summary once the count
// of messages past the current cutoff crosses the trigger, keeping the most
// recent window out of the summary.
func (s *ChatService) SummarizeIfNeeded(ctx context.Context, chatID int64) error {
	chat, err := s.chats.GetWithContext(ctx, chatID)
	if err != nil {
		return err
	}
	var cutoff int64
	if chat.SummaryUpToMessageID != nil {
		cutoff = *chat.SummaryUpToMessageID
	}
	count, err := s.messages.CountAfter(ctx, chatID, cutoff)
	if err != nil {
		return err
	}
	if count < s.cfg.SummaryTriggerCount {
		return nil
	}
	msgs, err := s.messages.ListAfter(ctx, chatID, cutoff)
	if err != nil {
		return err
	}
	keep := s.cfg.RecentMessagesLimit
	if len(msgs) <= keep {
		return nil
	}
	toSummarize := msgs[:len(msgs)-keep]
	boundary := toSummarize[len(toSummarize)-1].ID

	prompt := buildSummaryPrompt(chat.Summary, toSummarize)
	summary, err := s.generator.Generate(ctx, "", []ai.ChatMessage{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fmt.Errorf("empty summary response")
	}
	logutil.GetLogger(ctx).Info("rolling summary updated",
		zap.Int64("chat_id", chatID),
		zap.Int64("up_to_message_id", boundary),
		zap.Int("summarized_messages", len(toSummarize)),
	)
	return s.chats.UpdateSummary(ctx, chatID, summary, boundary)
}

func buildSummaryPrompt(existing *string, msgs []model.Message) string {
	var sb strings.Builder
	sb.WriteString("You are a conversation summarizer.\n")
	sb.WriteString("Condense the conversation below into a short paragraph that preserves facts, decisions and open questions.\n")
	sb.WriteString("Output ONLY the summary text.\n\n")
	if existing != nil && strings.TrimSpace(*existing) != "" {
		sb.WriteString("PREVIOUS SUMMARY:\n")
		sb.WriteString(*existing)
		sb.WriteString("\n\n")
	}
	sb.WriteString("CONVERSATION:\n")
	for _, msg := range msgs {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func toIncoming(msgs []model.Message) []IncomingMessage {
	incoming := make([]IncomingMessage, 0, len(msgs))
	for _, msg := range msgs {
		id := msg.ID
		incoming = append(incoming, TextMessage(&id, msg.Role, msg.Content))
	}
	return incoming
}
