package model

type MessageEmbedding struct {
	MessageID int64     `json:"message_id"`
	ChatID    int64     `json:"chat_id"`
	ProjectID *int64    `json:"project_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	Ctime     int64     `json:"ctime"`
}

type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Mtime int64  `json:"mtime"`
}
