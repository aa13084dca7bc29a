package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/model"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

type fakeDocumentStore struct {
	docs   map[int64]*model.Document
	nextID int64
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[int64]*model.Document), nextID: 1}
}

func (f *fakeDocumentStore) Create(_ context.Context, doc *model.Document) error {
	doc.ID = f.nextID
	f.nextID++
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocumentStore) Get(_ context.Context, id int64) (*model.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocumentStore) ListByProject(_ context.Context, projectID int64) ([]model.Document, error) {
	var out []model.Document
	for _, doc := range f.docs {
		if doc.ProjectID == projectID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) MarkReady(_ context.Context, id int64, chunkCount int) error {
	doc, ok := f.docs[id]
	if !ok {
		return appErr.ErrNotFound
	}
	doc.Status = model.DocumentStatusReady
	doc.ChunkCount = chunkCount
	doc.ErrorMessage = ""
	return nil
}

func (f *fakeDocumentStore) MarkError(_ context.Context, id int64, message string) error {
	doc, ok := f.docs[id]
	if !ok {
		return appErr.ErrNotFound
	}
	doc.Status = model.DocumentStatusError
	doc.ErrorMessage = message
	return nil
}

func (f *fakeDocumentStore) Delete(_ context.Context, id int64) error {
	delete(f.docs, id)
	return nil
}

type fakeChunkIngestStore struct {
	saved     []*model.DocumentChunk
	embedded  map[int64][]float32
	saveErr   error
	nextID    int64
	updateErr error
}

func newFakeChunkIngestStore() *fakeChunkIngestStore {
	return &fakeChunkIngestStore{embedded: make(map[int64][]float32), nextID: 1}
}

func (f *fakeChunkIngestStore) SaveBatch(_ context.Context, chunks []*model.DocumentChunk) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	for _, chunk := range chunks {
		chunk.ID = f.nextID
		f.nextID++
		f.saved = append(f.saved, chunk)
	}
	return nil
}

func (f *fakeChunkIngestStore) UpdateEmbedding(_ context.Context, id int64, embedding []float32) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.embedded[id] = embedding
	return nil
}

// flakyEmbedder fails on chosen call numbers (1-based) and succeeds otherwise.
type flakyEmbedder struct {
	failCalls map[int]bool
	calls     int
}

func (f *flakyEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	if f.failCalls[f.calls] {
		return nil, fmt.Errorf("embed timeout")
	}
	return []float32{1, 0}, nil
}

func (f *flakyEmbedder) IsAvailable(context.Context) bool { return true }

func (f *flakyEmbedder) ModelName() string { return "fake-embed" }

func TestUpload_ChunksAndEmbeds(t *testing.T) {
	docs := newFakeDocumentStore()
	chunks := newFakeChunkIngestStore()
	embedder := &flakyEmbedder{}
	svc := NewDocumentService(docs, chunks, nil, embedder, testContextConfig())

	text := strings.Repeat("a", 5000)
	doc, err := svc.Upload(context.Background(), 7, "notes.txt", "text/plain", []byte(text))
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusReady, doc.Status)
	require.Equal(t, 3, doc.ChunkCount)
	require.Len(t, chunks.saved, 3)
	require.Len(t, chunks.embedded, 3)
	for i, chunk := range chunks.saved {
		require.Equal(t, i, chunk.ChunkIndex)
		require.Equal(t, doc.ID, chunk.DocumentID)
		require.Equal(t, int64(7), chunk.ProjectID)
	}
}

func TestUpload_PartialEmbedFailureStillReady(t *testing.T) {
	docs := newFakeDocumentStore()
	chunks := newFakeChunkIngestStore()
	embedder := &flakyEmbedder{failCalls: map[int]bool{2: true}}
	svc := NewDocumentService(docs, chunks, nil, embedder, testContextConfig())

	text := strings.Repeat("a", 5000)
	doc, err := svc.Upload(context.Background(), 7, "notes.txt", "text/plain", []byte(text))
	require.NoError(t, err)
	// a failed chunk embedding degrades retrieval, not the document
	require.Equal(t, model.DocumentStatusReady, doc.Status)
	require.Equal(t, 3, doc.ChunkCount)
	require.Len(t, chunks.embedded, 2)
}

func TestUpload_NoEmbedderStillReady(t *testing.T) {
	docs := newFakeDocumentStore()
	chunks := newFakeChunkIngestStore()
	svc := NewDocumentService(docs, chunks, nil, nil, testContextConfig())

	doc, err := svc.Upload(context.Background(), 7, "notes.txt", "text/plain", []byte("short document"))
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusReady, doc.Status)
	require.Equal(t, 1, doc.ChunkCount)
	require.Empty(t, chunks.embedded)
}

func TestUpload_RejectsOversizeAndUnsupported(t *testing.T) {
	cfg := testContextConfig()
	cfg.MaxDocumentFileSize = 10
	svc := NewDocumentService(newFakeDocumentStore(), newFakeChunkIngestStore(), nil, nil, cfg)

	_, err := svc.Upload(context.Background(), 7, "big.txt", "text/plain", []byte(strings.Repeat("a", 11)))
	require.ErrorIs(t, err, appErr.ErrFileTooLarge)

	cfg = testContextConfig()
	svc = NewDocumentService(newFakeDocumentStore(), newFakeChunkIngestStore(), nil, nil, cfg)
	_, err = svc.Upload(context.Background(), 7, "image.png", "image/png", []byte{0x89, 0x50})
	require.ErrorIs(t, err, appErr.ErrUnsupportedFile)
}

func TestUpload_EmptyDocument(t *testing.T) {
	svc := NewDocumentService(newFakeDocumentStore(), newFakeChunkIngestStore(), nil, nil, testContextConfig())
	_, err := svc.Upload(context.Background(), 7, "empty.txt", "text/plain", []byte("   \n "))
	require.ErrorIs(t, err, appErr.ErrEmptyDocument)
}

func TestUpload_ChunkPersistFailureMarksError(t *testing.T) {
	docs := newFakeDocumentStore()
	chunks := newFakeChunkIngestStore()
	chunks.saveErr = fmt.Errorf("disk full")
	svc := NewDocumentService(docs, chunks, nil, nil, testContextConfig())

	doc, err := svc.Upload(context.Background(), 7, "notes.txt", "text/plain", []byte("some content"))
	require.Error(t, err)
	require.NotNil(t, doc)
	require.Equal(t, model.DocumentStatusError, doc.Status)
	require.Contains(t, doc.ErrorMessage, "disk full")

	stored, getErr := docs.Get(context.Background(), doc.ID)
	require.NoError(t, getErr)
	require.Equal(t, model.DocumentStatusError, stored.Status)
}
