package service

import (
	"context"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/model"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
	"github.com/parley-ai/parley/internal/repo"
)

type PersonaService struct {
	personas *repo.PersonaRepo
}

func NewPersonaService(personas *repo.PersonaRepo) *PersonaService {
	return &PersonaService{personas: personas}
}

func (s *PersonaService) Create(ctx context.Context, name, systemPrompt string) (*model.Persona, error) {
	name = strings.TrimSpace(name)
	systemPrompt = strings.TrimSpace(systemPrompt)
	if name == "" || systemPrompt == "" {
		return nil, appErr.ErrInvalid
	}
	persona := &model.Persona{
		Name:         name,
		SystemPrompt: systemPrompt,
		Ctime:        time.Now().UnixMilli(),
	}
	if err := s.personas.Create(ctx, persona); err != nil {
		return nil, err
	}
	return persona, nil
}

func (s *PersonaService) List(ctx context.Context) ([]model.Persona, error) {
	return s.personas.List(ctx)
}

func (s *PersonaService) Update(ctx context.Context, id int64, name, systemPrompt string) error {
	name = strings.TrimSpace(name)
	systemPrompt = strings.TrimSpace(systemPrompt)
	if name == "" || systemPrompt == "" {
		return appErr.ErrInvalid
	}
	return s.personas.Update(ctx, id, name, systemPrompt)
}

func (s *PersonaService) Delete(ctx context.Context, id int64) error {
	return s.personas.Delete(ctx, id)
}
