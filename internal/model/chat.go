package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Chat struct {
	ID        int64  `json:"id"`
	ProjectID *int64 `json:"project_id"`
	PersonaID *int64 `json:"persona_id"`
	Title     string `json:"title"`
	// SystemPrompt, Summary and SummaryUpToMessageID are nullable. Summary and
	// its cutoff are always written together or cleared together.
	SystemPrompt         *string `json:"system_prompt"`
	Summary              *string `json:"summary"`
	SummaryUpToMessageID *int64  `json:"summary_up_to_message_id"`
	Archived             bool    `json:"archived"`
	Ctime                int64   `json:"ctime"`
}

type Message struct {
	ID      int64  `json:"id"`
	ChatID  int64  `json:"chat_id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Ctime   int64  `json:"ctime"`
}

type ChatTopic struct {
	ChatID     int64  `json:"chat_id"`
	Topic      string `json:"topic"`
	Confidence int    `json:"confidence"`
}
