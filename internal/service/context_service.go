package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parley-ai/parley/internal/ai"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/model"
)

// MessagePart is one element of a structured message body. Only text parts
// contribute to the transcript; unknown kinds are ignored.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const PartTypeText = "text"

type IncomingMessage struct {
	ID    *int64        `json:"id"`
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// ExtractText projects the text parts of a message body into a single string.
func ExtractText(parts []MessagePart) string {
	var texts []string
	for _, part := range parts {
		if part.Type != PartTypeText {
			continue
		}
		if part.Text == "" {
			continue
		}
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, "\n")
}

func TextMessage(id *int64, role, text string) IncomingMessage {
	return IncomingMessage{
		ID:    id,
		Role:  role,
		Parts: []MessagePart{{Type: PartTypeText, Text: text}},
	}
}

// EnrichmentStep records whether a best-effort context step actually ran, so
// callers and tests can tell a degraded turn from an empty result.
type EnrichmentStep struct {
	Ran        bool   `json:"ran"`
	SkipReason string `json:"skip_reason,omitempty"`
	Matches    int    `json:"matches"`
}

type AssemblyReport struct {
	Semantic        EnrichmentStep `json:"semantic"`
	Documents       EnrichmentStep `json:"documents"`
	SummaryIncluded bool           `json:"summary_included"`
	Windowed        bool           `json:"windowed"`
	DroppedMessages int            `json:"dropped_messages"`
}

type AssembledContext struct {
	System   string           `json:"system"`
	Messages []ai.ChatMessage `json:"messages"`
	Report   AssemblyReport   `json:"report"`
}

// Fixed framing for synthetic context turns. Each block is injected as a user
// message followed by an assistant acknowledgment so the sequence keeps strict
// user/assistant alternation.
const (
	documentContextLabel = "Relevant excerpts from the project documents:"
	documentContextAck   = "Noted. I will use those document excerpts as context."
	semanticContextLabel = "Relevant context from earlier in this conversation:"
	semanticContextAck   = "Noted. I will keep that earlier context in mind."
	summaryLabel         = "Summary of the conversation so far:"
	summaryAck           = "Understood. I will treat that as the summary of our earlier conversation."
)

type contextChatStore interface {
	GetWithContext(ctx context.Context, id int64) (*model.Chat, error)
}

type messageEmbeddingStore interface {
	ListByChat(ctx context.Context, chatID int64) ([]model.MessageEmbedding, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.MessageEmbedding, error)
}

type chunkSearchStore interface {
	ListEmbeddedByProject(ctx context.Context, projectID int64) ([]model.DocumentChunk, error)
}

// ContextService assembles the message sequence sent to the model on every
// chat turn: system prompt, retrieved context, rolling summary and the recent
// message window, in that priority order.
type ContextService struct {
	chats      contextChatStore
	embeddings messageEmbeddingStore
	chunks     chunkSearchStore
	embedder   ai.IEmbedder
	cfg        config.ContextConfig
}

func NewContextService(
	chats contextChatStore,
	embeddings messageEmbeddingStore,
	chunks chunkSearchStore,
	embedder ai.IEmbedder,
	cfg config.ContextConfig,
) *ContextService {
	return &ContextService{
		chats:      chats,
		embeddings: embeddings,
		chunks:     chunks,
		embedder:   embedder,
		cfg:        cfg,
	}
}

// Assemble builds the final context for one chat turn. Retrieval failures
// degrade the context, never the turn: the only hard error is an unknown chat.
func (s *ContextService) Assemble(ctx context.Context, chatID int64, incoming []IncomingMessage) (*AssembledContext, error) {
	chat, err := s.chats.GetWithContext(ctx, chatID)
	if err != nil {
		return nil, err
	}

	out := &AssembledContext{}
	if chat.SystemPrompt != nil {
		out.System = *chat.SystemPrompt
	}

	semMatches, docMatches := s.retrieve(ctx, chat, incoming, &out.Report)

	recent := incoming
	if chat.Summary != nil {
		out.Report.SummaryIncluded = true
		out.Report.Windowed = true
		if len(recent) > s.cfg.RecentMessagesLimit {
			out.Report.DroppedMessages = len(recent) - s.cfg.RecentMessagesLimit
			recent = recent[len(recent)-s.cfg.RecentMessagesLimit:]
		}
	}

	var messages []ai.ChatMessage
	if len(docMatches) > 0 {
		messages = append(messages, contextPair(documentContextLabel, joinMatches(docMatches), documentContextAck)...)
	}
	if len(semMatches) > 0 {
		messages = append(messages, contextPair(semanticContextLabel, joinMatches(semMatches), semanticContextAck)...)
	}
	if chat.Summary != nil {
		messages = append(messages, contextPair(summaryLabel, *chat.Summary, summaryAck)...)
	}
	for _, msg := range recent {
		messages = append(messages, ai.ChatMessage{Role: msg.Role, Content: ExtractText(msg.Parts)})
	}
	out.Messages = messages
	return out, nil
}

// retrieve runs the semantic and document enrichment steps. Both are
// best-effort; every failure path is recorded in the report and logged.
func (s *ContextService) retrieve(ctx context.Context, chat *model.Chat, incoming []IncomingMessage, report *AssemblyReport) ([]ai.Match, []ai.Match) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("chat_id", chat.ID))

	queryText := lastUserText(incoming)
	if queryText == "" {
		report.Semantic.SkipReason = "no user text in incoming messages"
		report.Documents.SkipReason = report.Semantic.SkipReason
		return nil, nil
	}
	if s.embedder == nil {
		report.Semantic.SkipReason = "no embedding provider configured"
		report.Documents.SkipReason = report.Semantic.SkipReason
		return nil, nil
	}

	queryEmb, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		logger.Warn("query embedding failed, skipping semantic context", zap.Error(err))
		report.Semantic.SkipReason = "query embedding failed"
		report.Documents.SkipReason = report.Semantic.SkipReason
		return nil, nil
	}

	semMatches := s.retrieveMessages(ctx, chat, incoming, queryEmb, report)
	docMatches := s.retrieveChunks(ctx, chat, queryEmb, report)
	return semMatches, docMatches
}

func (s *ContextService) retrieveMessages(ctx context.Context, chat *model.Chat, incoming []IncomingMessage, queryEmb []float32, report *AssemblyReport) []ai.Match {
	logger := logutil.GetLogger(ctx).With(zap.Int64("chat_id", chat.ID))

	var records []model.MessageEmbedding
	var err error
	if chat.ProjectID != nil {
		records, err = s.embeddings.ListByProject(ctx, *chat.ProjectID)
	} else {
		records, err = s.embeddings.ListByChat(ctx, chat.ID)
	}
	if err != nil {
		logger.Warn("message embedding retrieval failed", zap.Error(err))
		report.Semantic.SkipReason = "retrieval failed"
		return nil
	}

	seen := make(map[int64]struct{}, len(incoming))
	for _, msg := range incoming {
		if msg.ID != nil {
			seen[*msg.ID] = struct{}{}
		}
	}
	candidates := make([]ai.Candidate, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.MessageID]; ok {
			continue
		}
		candidates = append(candidates, ai.Candidate{
			Ref:       ai.SourceRef{MessageID: rec.MessageID, ChatID: rec.ChatID},
			Content:   rec.Content,
			Embedding: rec.Embedding,
		})
	}

	matches := ai.FindSimilar(queryEmb, candidates, s.cfg.MaxSimilarMessages, float32(s.cfg.MessageSimThreshold))
	report.Semantic.Ran = true
	report.Semantic.Matches = len(matches)
	return matches
}

func (s *ContextService) retrieveChunks(ctx context.Context, chat *model.Chat, queryEmb []float32, report *AssemblyReport) []ai.Match {
	if chat.ProjectID == nil {
		report.Documents.SkipReason = "chat has no project"
		return nil
	}
	logger := logutil.GetLogger(ctx).With(zap.Int64("chat_id", chat.ID), zap.Int64("project_id", *chat.ProjectID))

	chunks, err := s.chunks.ListEmbeddedByProject(ctx, *chat.ProjectID)
	if err != nil {
		logger.Warn("document chunk retrieval failed", zap.Error(err))
		report.Documents.SkipReason = "retrieval failed"
		return nil
	}
	candidates := make([]ai.Candidate, 0, len(chunks))
	for _, chunk := range chunks {
		candidates = append(candidates, ai.Candidate{
			Ref:       ai.SourceRef{DocumentID: chunk.DocumentID, ChunkID: chunk.ID},
			Content:   chunk.Content,
			Embedding: chunk.Embedding,
		})
	}

	matches := ai.FindSimilar(queryEmb, candidates, s.cfg.MaxDocumentChunks, float32(s.cfg.ChunkSimThreshold))
	report.Documents.Ran = true
	report.Documents.Matches = len(matches)
	return matches
}

func lastUserText(incoming []IncomingMessage) string {
	for i := len(incoming) - 1; i >= 0; i-- {
		if incoming[i].Role == model.RoleUser {
			return strings.TrimSpace(ExtractText(incoming[i].Parts))
		}
	}
	return ""
}

func contextPair(label, body, ack string) []ai.ChatMessage {
	return []ai.ChatMessage{
		{Role: model.RoleUser, Content: label + "\n\n" + body},
		{Role: model.RoleAssistant, Content: ack},
	}
}

func joinMatches(matches []ai.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
