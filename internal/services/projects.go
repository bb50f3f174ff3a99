package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
	"github.com/Roquverse/flow-invoice-nexus/validation"
)

type ProjectInput struct {
	ClientID    *uint               `json:"client_id"`
	Name        string              `json:"name" validate:"required,max=255"`
	Description string              `json:"description"`
	Status      string              `json:"status" validate:"omitempty,oneof=active completed on-hold cancelled"`
	StartDate   *models.Date        `json:"start_date"`
	EndDate     *models.Date        `json:"end_date"`
	Budget      decimal.NullDecimal `json:"budget"`
}

func (in ProjectInput) status() models.ProjectStatus {
	if in.Status == "" {
		return models.ProjectStatusActive
	}
	return models.ProjectStatus(in.Status)
}

type ProjectService struct {
	*deps
	projects *store.Store[models.Project, *models.Project]
}

func newProjectService(d *deps) *ProjectService {
	return &ProjectService{deps: d, projects: store.New[models.Project](d.db, "project")}
}

func (s *ProjectService) validate(ctx context.Context, ownerID uint, in ProjectInput) error {
	v := validation.Struct(in)
	if in.Budget.Valid {
		validation.NonNegative("budget", in.Budget.Decimal, v)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		v["end_date"] = "before_start_date"
	}
	if err := v.Err(); err != nil {
		return err
	}
	if in.ClientID != nil {
		return ownedRef(ctx, s.db, &models.Client{}, "client_id", ownerID, *in.ClientID)
	}
	return nil
}

func (s *ProjectService) List(ctx context.Context, ownerID uint, opts store.ListOptions) ([]models.Project, int64, error) {
	return s.projects.List(ctx, ownerID, opts)
}

func (s *ProjectService) Get(ctx context.Context, ownerID, id uint) (*models.Project, error) {
	return s.projects.Get(ctx, ownerID, id)
}

func (s *ProjectService) Create(ctx context.Context, ownerID uint, in ProjectInput) (*models.Project, error) {
	if err := s.validate(ctx, ownerID, in); err != nil {
		return nil, err
	}
	p := &models.Project{
		ClientID:    in.ClientID,
		Name:        in.Name,
		Description: in.Description,
		Status:      in.status(),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Budget:      in.Budget,
	}
	if err := s.projects.Create(ctx, ownerID, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Update(ctx context.Context, ownerID, id uint, in ProjectInput) (*models.Project, error) {
	if err := s.validate(ctx, ownerID, in); err != nil {
		return nil, err
	}
	return s.projects.Update(ctx, ownerID, id, map[string]any{
		"client_id":   in.ClientID,
		"name":        in.Name,
		"description": in.Description,
		"status":      in.status(),
		"start_date":  in.StartDate,
		"end_date":    in.EndDate,
		"budget":      in.Budget,
	})
}

func (s *ProjectService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.projects.Delete(ctx, ownerID, id)
}
