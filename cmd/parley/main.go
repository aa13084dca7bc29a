package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/parley-ai/parley/internal/ai"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/db"
	"github.com/parley-ai/parley/internal/embedcache"
	"github.com/parley-ai/parley/internal/filestore"
	"github.com/parley-ai/parley/internal/handler"
	"github.com/parley-ai/parley/internal/job"
	"github.com/parley-ai/parley/internal/middleware"
	"github.com/parley-ai/parley/internal/pkg/password"
	"github.com/parley-ai/parley/internal/repo"
	"github.com/parley-ai/parley/internal/schedule"
	"github.com/parley-ai/parley/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "parley",
		Short: "parley chat backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run parley server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	hashCmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "hash a password for the auth.password_hash config field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := password.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hashed)
			return nil
		},
	}
	rootCmd.AddCommand(hashCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildGenerator(cfg config.ProviderConfig) (ai.IGenerator, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("ai.chat.provider is required")
	}
	provider, err := ai.NewProvider(cfg.Provider, cfg.Data)
	if err != nil {
		return nil, err
	}
	return ai.NewGenerator(provider, cfg.Model), nil
}

// buildEmbedder returns nil when no embedding provider is configured; every
// consumer treats a nil embedder as "retrieval disabled".
func buildEmbedder(cfg config.AIConfig) (ai.IEmbedder, error) {
	if cfg.Embedding.Provider == "" {
		return nil, nil
	}
	provider, err := ai.NewEmbedProvider(cfg.Embedding.Provider, cfg.Embedding.Data)
	if err != nil {
		return nil, err
	}
	embedder := ai.NewEmbedder(provider, cfg.Embedding.Model)
	return embedcache.WrapLruCacheToEmbedder(
		embedder,
		cfg.CacheSize,
		time.Duration(cfg.CacheTTLMin)*time.Minute,
	), nil
}

// applySettingOverrides merges user-edited settings on top of the config file
// before providers are built, so edits made through the settings API survive
// restarts.
func applySettingOverrides(ctx context.Context, settings *repo.SettingRepo, cfg *config.Config) error {
	override := func(key string, apply func(value string)) error {
		value, ok, err := settings.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok && strings.TrimSpace(value) != "" {
			apply(strings.TrimSpace(value))
		}
		return nil
	}
	setData := func(pc *config.ProviderConfig, field, value string) {
		data, _ := pc.Data.(map[string]interface{})
		if data == nil {
			data = make(map[string]interface{})
		}
		data[field] = value
		pc.Data = data
	}
	if err := override("ollama_base_url", func(v string) {
		if cfg.AI.Chat.Provider == "ollama" {
			setData(&cfg.AI.Chat, "base_url", v)
		}
		if cfg.AI.Embedding.Provider == "ollama" {
			setData(&cfg.AI.Embedding, "base_url", v)
		}
	}); err != nil {
		return err
	}
	if err := override("gemini_api_key", func(v string) {
		if cfg.AI.Chat.Provider == "gemini" {
			setData(&cfg.AI.Chat, "api_key", v)
		}
	}); err != nil {
		return err
	}
	if err := override("chat_model", func(v string) {
		cfg.AI.Chat.Model = v
	}); err != nil {
		return err
	}
	return override("embedding_model", func(v string) {
		cfg.AI.Embedding.Model = v
	})
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("chat_provider", cfg.AI.Chat.Provider),
		zap.String("embedding_provider", cfg.AI.Embedding.Provider),
	)

	projectRepo := repo.NewProjectRepo(database)
	personaRepo := repo.NewPersonaRepo(database)
	chatRepo := repo.NewChatRepo(database)
	messageRepo := repo.NewMessageRepo(database)
	embeddingRepo := repo.NewEmbeddingRepo(database)
	documentRepo := repo.NewDocumentRepo(database)
	chunkRepo := repo.NewChunkRepo(database)
	topicRepo := repo.NewTopicRepo(database)
	settingRepo := repo.NewSettingRepo(database)

	if err := applySettingOverrides(context.Background(), settingRepo, cfg); err != nil {
		return fmt.Errorf("load setting overrides: %w", err)
	}

	generator, err := buildGenerator(cfg.AI.Chat)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	embedder, err := buildEmbedder(cfg.AI)
	if err != nil {
		return fmt.Errorf("init embedding provider: %w", err)
	}

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	contextService := service.NewContextService(chatRepo, embeddingRepo, chunkRepo, embedder, cfg.Context)
	chatService := service.NewChatService(chatRepo, messageRepo, embeddingRepo, personaRepo, contextService, generator, embedder, cfg.Context)
	documentService := service.NewDocumentService(documentRepo, chunkRepo, store, embedder, cfg.Context)
	projectService := service.NewProjectService(projectRepo)
	personaService := service.NewPersonaService(personaRepo)
	topicService := service.NewTopicService(topicRepo, messageRepo, generator)
	settingService := service.NewSettingService(settingRepo)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(cfg.Auth, []byte(cfg.JWTSecret)),
		Projects:  handler.NewProjectHandler(projectService),
		Chats:     handler.NewChatHandler(chatService, topicService),
		Documents: handler.NewDocumentHandler(documentService, cfg.Context.MaxDocumentFileSize),
		Personas:  handler.NewPersonaHandler(personaService),
		Models:    handler.NewModelHandler(cfg.AI, embedder),
		Settings:  handler.NewSettingHandler(settingService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if embedder != nil {
		backfill := job.NewEmbeddingBackfillJob(messageRepo, embeddingRepo, chunkRepo, chatRepo, embedder, cfg.Jobs.EmbeddingBackfillBatch)
		if err := scheduler.AddJob(backfill, cfg.Jobs.EmbeddingBackfillSpec); err != nil {
			return fmt.Errorf("schedule backfill job: %w", err)
		}
	}
	summaryJob := job.NewChatSummaryJob(chatRepo, chatService)
	if err := scheduler.AddJob(summaryJob, cfg.Jobs.ChatSummarySpec); err != nil {
		return fmt.Errorf("schedule summary job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
