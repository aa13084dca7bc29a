package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/model"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

type fakeChatStore struct {
	chats map[int64]*model.Chat
}

func (f *fakeChatStore) GetWithContext(_ context.Context, id int64) (*model.Chat, error) {
	chat, ok := f.chats[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return chat, nil
}

type fakeEmbeddingStore struct {
	records []model.MessageEmbedding
	err     error
}

func (f *fakeEmbeddingStore) ListByChat(_ context.Context, chatID int64) ([]model.MessageEmbedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.MessageEmbedding
	for _, rec := range f.records {
		if rec.ChatID == chatID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeEmbeddingStore) ListByProject(_ context.Context, projectID int64) ([]model.MessageEmbedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.MessageEmbedding
	for _, rec := range f.records {
		if rec.ProjectID != nil && *rec.ProjectID == projectID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeChunkStore struct {
	chunks []model.DocumentChunk
	err    error
}

func (f *fakeChunkStore) ListEmbeddedByProject(_ context.Context, projectID int64) ([]model.DocumentChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.DocumentChunk
	for _, chunk := range f.chunks {
		if chunk.ProjectID == projectID && chunk.Embedding != nil {
			out = append(out, chunk)
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) IsAvailable(context.Context) bool { return f.err == nil }

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

func testContextConfig() config.ContextConfig {
	return config.ContextConfig{
		RecentMessagesLimit: 20,
		MaxSimilarMessages:  5,
		MessageSimThreshold: 0.7,
		MaxDocumentChunks:   3,
		ChunkSimThreshold:   0.5,
		SummaryTriggerCount: 30,
		ChunkMaxSize:        2000,
		ChunkOverlap:        400,
		MaxDocumentFileSize: 10 * 1024 * 1024,
	}
}

func userTurns(n int) []IncomingMessage {
	var msgs []IncomingMessage
	for i := 0; i < n; i++ {
		id := int64(i + 1)
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs = append(msgs, TextMessage(&id, role, fmt.Sprintf("message %d", i+1)))
	}
	return msgs
}

func TestAssemble_UnknownChat(t *testing.T) {
	svc := NewContextService(&fakeChatStore{chats: map[int64]*model.Chat{}}, &fakeEmbeddingStore{}, &fakeChunkStore{}, nil, testContextConfig())
	_, err := svc.Assemble(context.Background(), 99, nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestAssemble_NoEnrichmentPassesMessagesThrough(t *testing.T) {
	chats := &fakeChatStore{chats: map[int64]*model.Chat{1: {ID: 1}}}
	svc := NewContextService(chats, &fakeEmbeddingStore{}, &fakeChunkStore{}, nil, testContextConfig())

	incoming := userTurns(4)
	out, err := svc.Assemble(context.Background(), 1, incoming)
	require.NoError(t, err)
	require.Empty(t, out.System)
	require.Len(t, out.Messages, 4)
	require.Equal(t, "message 1", out.Messages[0].Content)
	require.False(t, out.Report.Semantic.Ran)
	require.Equal(t, "no embedding provider configured", out.Report.Semantic.SkipReason)
}

func TestAssemble_SummaryWindowsRecentMessages(t *testing.T) {
	summary := "we discussed the roadmap"
	cutoff := int64(5)
	chats := &fakeChatStore{chats: map[int64]*model.Chat{1: {
		ID:                   1,
		Summary:              &summary,
		SummaryUpToMessageID: &cutoff,
	}}}
	svc := NewContextService(chats, &fakeEmbeddingStore{}, &fakeChunkStore{}, nil, testContextConfig())

	incoming := userTurns(25)
	out, err := svc.Assemble(context.Background(), 1, incoming)
	require.NoError(t, err)

	require.True(t, out.Report.SummaryIncluded)
	require.True(t, out.Report.Windowed)
	require.Equal(t, 5, out.Report.DroppedMessages)

	// one summary pseudo-pair followed by the last 20 messages
	require.Len(t, out.Messages, 2+20)
	require.Equal(t, model.RoleUser, out.Messages[0].Role)
	require.Contains(t, out.Messages[0].Content, summary)
	require.Equal(t, model.RoleAssistant, out.Messages[1].Role)
	require.Equal(t, "message 6", out.Messages[2].Content)
	require.Equal(t, "message 25", out.Messages[len(out.Messages)-1].Content)
}

func TestAssemble_NoSummaryKeepsFullHistory(t *testing.T) {
	chats := &fakeChatStore{chats: map[int64]*model.Chat{1: {ID: 1}}}
	svc := NewContextService(chats, &fakeEmbeddingStore{}, &fakeChunkStore{}, nil, testContextConfig())

	incoming := userTurns(25)
	out, err := svc.Assemble(context.Background(), 1, incoming)
	require.NoError(t, err)
	require.False(t, out.Report.Windowed)
	require.Len(t, out.Messages, 25)
}

func TestAssemble_SemanticRetrievalExcludesIncoming(t *testing.T) {
	chats := &fakeChatStore{chats: map[int64]*model.Chat{1: {ID: 1}}}
	embeddings := &fakeEmbeddingStore{records: []model.MessageEmbedding{
		{MessageID: 1, ChatID: 1, Content: "message 1", Embedding: []float32{1, 0}},
		{MessageID: 50, ChatID: 1, Content: "old relevant turn", Embedding: []float32{1, 0}},
		{MessageID: 51, ChatID: 1, Content: "old unrelated turn", Embedding: []float32{0, 1}},
	}}
	embedder := &fakeEmbedder{}
	svc := NewContextService(chats, embeddings, &fakeChunkStore{}, embedder, testContextConfig())

	incoming := userTurns(2)
	out, err := svc.Assemble(context.Background(), 1, incoming)
	require.NoError(t, err)

	require.True(t, out.Report.Semantic.Ran)
	require.Equal(t, 1, out.Report.Semantic.Matches)
	// pseudo-pair precedes the live history
	require.Len(t, out.Messages, 2+2)
	require.Contains(t, out.Messages[0].Content, "old relevant turn")
	require.NotContains(t, out.Messages[0].Content, "message 1")
	require.Equal(t, model.RoleAssistant, out.Messages[1].Role)
}

func TestAssemble_DocumentChunksRequireProject(t *testing.T) {
	projectID := int64(7)
	chats := &fakeChatStore{chats: map[int64]*model.Chat{
		1: {ID: 1},
		2: {ID: 2, ProjectID: &projectID},
	}}
	chunks := &fakeChunkStore{chunks: []model.DocumentChunk{
		{ID: 10, DocumentID: 3, ProjectID: projectID, Content: "chunk about topic", Embedding: []float32{1, 0}},
	}}
	embedder := &fakeEmbedder{}

	svc := NewContextService(chats, &fakeEmbeddingStore{}, chunks, embedder, testContextConfig())

	out, err := svc.Assemble(context.Background(), 1, userTurns(2))
	require.NoError(t, err)
	require.False(t, out.Report.Documents.Ran)
	require.Equal(t, "chat has no project", out.Report.Documents.SkipReason)

	out, err = svc.Assemble(context.Background(), 2, userTurns(2))
	require.NoError(t, err)
	require.True(t, out.Report.Documents.Ran)
	require.Equal(t, 1, out.Report.Documents.Matches)
	require.Contains(t, out.Messages[0].Content, "chunk about topic")
}

func TestAssemble_EmbedFailureDegradesGracefully(t *testing.T) {
	chats := &fakeChatStore{chats: map[int64]*model.Chat{1: {ID: 1}}}
	embedder := &fakeEmbedder{err: fmt.Errorf("connection refused")}
	svc := NewContextService(chats, &fakeEmbeddingStore{}, &fakeChunkStore{}, embedder, testContextConfig())

	out, err := svc.Assemble(context.Background(), 1, userTurns(4))
	require.NoError(t, err)
	require.Len(t, out.Messages, 4)
	require.False(t, out.Report.Semantic.Ran)
	require.Equal(t, "query embedding failed", out.Report.Semantic.SkipReason)
	require.Equal(t, "query embedding failed", out.Report.Documents.SkipReason)
}

func TestAssemble_OrderingDocsThenSemanticThenSummary(t *testing.T) {
	projectID := int64(7)
	summary := "summary so far"
	chats := &fakeChatStore{chats: map[int64]*model.Chat{1: {
		ID:        1,
		ProjectID: &projectID,
		Summary:   &summary,
	}}}
	embeddings := &fakeEmbeddingStore{records: []model.MessageEmbedding{
		{MessageID: 100, ChatID: 1, ProjectID: &projectID, Content: "semantic hit", Embedding: []float32{1, 0}},
	}}
	chunks := &fakeChunkStore{chunks: []model.DocumentChunk{
		{ID: 10, DocumentID: 3, ProjectID: projectID, Content: "doc hit", Embedding: []float32{1, 0}},
	}}
	embedder := &fakeEmbedder{}
	svc := NewContextService(chats, embeddings, chunks, embedder, testContextConfig())

	out, err := svc.Assemble(context.Background(), 1, userTurns(2))
	require.NoError(t, err)

	// [doc pair][semantic pair][summary pair][recent]
	require.Len(t, out.Messages, 6+2)
	require.Contains(t, out.Messages[0].Content, "doc hit")
	require.Contains(t, out.Messages[2].Content, "semantic hit")
	require.Contains(t, out.Messages[4].Content, summary)
	require.Equal(t, "message 1", out.Messages[6].Content)
}

func TestAssemble_NoUserTextSkipsRetrieval(t *testing.T) {
	chats := &fakeChatStore{chats: map[int64]*model.Chat{1: {ID: 1}}}
	embedder := &fakeEmbedder{}
	svc := NewContextService(chats, &fakeEmbeddingStore{}, &fakeChunkStore{}, embedder, testContextConfig())

	id := int64(1)
	incoming := []IncomingMessage{TextMessage(&id, model.RoleAssistant, "assistant only")}
	out, err := svc.Assemble(context.Background(), 1, incoming)
	require.NoError(t, err)
	require.Zero(t, embedder.calls)
	require.Equal(t, "no user text in incoming messages", out.Report.Semantic.SkipReason)
}

func TestExtractText(t *testing.T) {
	parts := []MessagePart{
		{Type: PartTypeText, Text: "hello"},
		{Type: "image", Text: "ignored"},
		{Type: PartTypeText, Text: ""},
		{Type: PartTypeText, Text: "world"},
	}
	require.Equal(t, "hello\nworld", ExtractText(parts))
	require.Equal(t, "", ExtractText(nil))
}
