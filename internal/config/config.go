package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	JWTSecret string           `json:"jwt_secret"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	FileStore FileStoreConfig  `json:"file_store"`
	AI        AIConfig         `json:"ai"`
	Context   ContextConfig    `json:"context"`
	Auth      AuthConfig       `json:"auth"`
	Jobs      JobsConfig       `json:"jobs"`
	CORS      []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Chat          ProviderConfig `json:"chat"`
	Embedding     ProviderConfig `json:"embedding"`
	EmbedDim      int            `json:"embed_dim"`
	Timeout       int            `json:"timeout"`
	ProbeTimeout  int            `json:"probe_timeout"`
	MaxInputChars int            `json:"max_input_chars"`
	CacheSize     int            `json:"cache_size"`
	CacheTTLMin   int            `json:"cache_ttl_minutes"`
}

type ContextConfig struct {
	RecentMessagesLimit  int     `json:"recent_messages_limit"`
	MaxSimilarMessages   int     `json:"max_similar_messages"`
	MessageSimThreshold  float64 `json:"message_similarity_threshold"`
	MaxDocumentChunks    int     `json:"max_document_chunks"`
	ChunkSimThreshold    float64 `json:"chunk_similarity_threshold"`
	SummaryTriggerCount  int     `json:"summary_trigger_count"`
	ChunkMaxSize         int     `json:"chunk_max_size"`
	ChunkOverlap         int     `json:"chunk_overlap"`
	MaxDocumentFileSize  int64   `json:"max_document_file_size"`
	MaxDocumentTextChars int     `json:"max_document_text_chars"`
}

type AuthConfig struct {
	PasswordHash  string `json:"password_hash"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

type JobsConfig struct {
	EmbeddingBackfillSpec  string `json:"embedding_backfill_spec"`
	EmbeddingBackfillBatch int    `json:"embedding_backfill_batch"`
	ChatSummarySpec        string `json:"chat_summary_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Auth.PasswordHash != "" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required when auth.password_hash is set")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "./data/files"}
	}
	applyAIDefaults(&cfg.AI)
	applyContextDefaults(&cfg.Context)
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = 72
	}
	if cfg.Jobs.EmbeddingBackfillSpec == "" {
		cfg.Jobs.EmbeddingBackfillSpec = "*/5 * * * *"
	}
	if cfg.Jobs.EmbeddingBackfillBatch == 0 {
		cfg.Jobs.EmbeddingBackfillBatch = 50
	}
	if cfg.Jobs.ChatSummarySpec == "" {
		cfg.Jobs.ChatSummarySpec = "*/10 * * * *"
	}
	return &cfg, nil
}

func applyAIDefaults(ai *AIConfig) {
	if ai.EmbedDim == 0 {
		ai.EmbedDim = 768
	}
	if ai.Timeout == 0 {
		ai.Timeout = 10
	}
	if ai.ProbeTimeout == 0 {
		ai.ProbeTimeout = 3
	}
	if ai.MaxInputChars == 0 {
		ai.MaxInputChars = 100000
	}
	if ai.CacheSize == 0 {
		ai.CacheSize = 10000
	}
	if ai.CacheTTLMin == 0 {
		ai.CacheTTLMin = 120
	}
}

func applyContextDefaults(c *ContextConfig) {
	if c.RecentMessagesLimit == 0 {
		c.RecentMessagesLimit = 20
	}
	if c.MaxSimilarMessages == 0 {
		c.MaxSimilarMessages = 5
	}
	if c.MessageSimThreshold == 0 {
		c.MessageSimThreshold = 0.7
	}
	if c.MaxDocumentChunks == 0 {
		c.MaxDocumentChunks = 3
	}
	if c.ChunkSimThreshold == 0 {
		c.ChunkSimThreshold = 0.5
	}
	if c.SummaryTriggerCount == 0 {
		c.SummaryTriggerCount = 30
	}
	if c.ChunkMaxSize == 0 {
		c.ChunkMaxSize = 2000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 400
	}
	if c.MaxDocumentFileSize == 0 {
		c.MaxDocumentFileSize = 10 * 1024 * 1024
	}
	if c.MaxDocumentTextChars == 0 {
		c.MaxDocumentTextChars = 100000
	}
}
