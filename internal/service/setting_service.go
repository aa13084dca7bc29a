package service

import (
	"context"
	"strings"
	"time"

	appErr "github.com/parley-ai/parley/internal/pkg/errors"
	"github.com/parley-ai/parley/internal/repo"
)

// Settings that may be edited through the API. They are merged over the
// config file on the next startup.
var allowedSettingKeys = map[string]bool{
	"ollama_base_url": true,
	"gemini_api_key":  true,
	"chat_model":      true,
	"embedding_model": true,
}

type SettingService struct {
	settings *repo.SettingRepo
}

func NewSettingService(settings *repo.SettingRepo) *SettingService {
	return &SettingService{settings: settings}
}

func (s *SettingService) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if !allowedSettingKeys[key] {
		return appErr.ErrInvalid
	}
	return s.settings.Set(ctx, key, value, time.Now().UnixMilli())
}

func (s *SettingService) List(ctx context.Context) (map[string]string, error) {
	return s.settings.List(ctx)
}
