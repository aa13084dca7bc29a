package model

const (
	DocumentStatusPending = "pending"
	DocumentStatusReady   = "ready"
	DocumentStatusError   = "error"
)

type Document struct {
	ID           int64  `json:"id"`
	ProjectID    int64  `json:"project_id"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
	CharCount    int64  `json:"char_count"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	ChunkCount   int    `json:"chunk_count"`
	Ctime        int64  `json:"ctime"`
}

type DocumentChunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	ProjectID  int64     `json:"project_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}
