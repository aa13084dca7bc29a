package service

import (
	"context"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/model"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
	"github.com/parley-ai/parley/internal/repo"
)

type ProjectService struct {
	projects *repo.ProjectRepo
}

func NewProjectService(projects *repo.ProjectRepo) *ProjectService {
	return &ProjectService{projects: projects}
}

func (s *ProjectService) Create(ctx context.Context, name, icon string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	project := &model.Project{
		Name:  name,
		Icon:  icon,
		Ctime: time.Now().UnixMilli(),
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*model.Project, error) {
	return s.projects.Get(ctx, id)
}

func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	return s.projects.List(ctx)
}

func (s *ProjectService) Rename(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return appErr.ErrInvalid
	}
	return s.projects.Rename(ctx, id, name)
}

func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	return s.projects.Delete(ctx, id)
}
