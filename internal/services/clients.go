package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
	"github.com/Roquverse/flow-invoice-nexus/validation"
)

// ClientInput is the writable part of a client.
type ClientInput struct {
	BusinessName string `json:"business_name" validate:"required,max=255"`
	ContactName  string `json:"contact_name" validate:"max=255"`
	Email        string `json:"email" validate:"omitempty,email,max=255"`
	Phone        string `json:"phone" validate:"max=50"`
	Address      string `json:"address" validate:"max=500"`
	City         string `json:"city" validate:"max=100"`
	PostalCode   string `json:"postal_code" validate:"max=20"`
	Country      string `json:"country" validate:"max=100"`
	TaxID        string `json:"tax_id" validate:"max=50"`
	Notes        string `json:"notes"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive archived"`
}

func (in ClientInput) status() models.ClientStatus {
	if in.Status == "" {
		return models.ClientStatusActive
	}
	return models.ClientStatus(in.Status)
}

func (in ClientInput) changes() map[string]any {
	return map[string]any{
		"business_name": in.BusinessName,
		"contact_name":  in.ContactName,
		"email":         in.Email,
		"phone":         in.Phone,
		"address":       in.Address,
		"city":          in.City,
		"postal_code":   in.PostalCode,
		"country":       in.Country,
		"tax_id":        in.TaxID,
		"notes":         in.Notes,
		"status":        in.status(),
	}
}

type ClientService struct {
	*deps
	clients *store.Store[models.Client, *models.Client]
	policy  store.DeletePolicy
}

func newClientService(d *deps, policy store.DeletePolicy) *ClientService {
	return &ClientService{deps: d, clients: store.New[models.Client](d.db, "client"), policy: policy}
}

// Policy returns the configured delete policy.
func (s *ClientService) Policy() store.DeletePolicy { return s.policy }

func (s *ClientService) List(ctx context.Context, ownerID uint, opts store.ListOptions) ([]models.Client, int64, error) {
	return s.clients.List(ctx, ownerID, opts)
}

func (s *ClientService) Get(ctx context.Context, ownerID, id uint) (*models.Client, error) {
	return s.clients.Get(ctx, ownerID, id)
}

func (s *ClientService) Create(ctx context.Context, ownerID uint, in ClientInput) (*models.Client, error) {
	if err := validation.Struct(in).Err(); err != nil {
		return nil, err
	}
	c := &models.Client{
		BusinessName: in.BusinessName,
		ContactName:  in.ContactName,
		Email:        in.Email,
		Phone:        in.Phone,
		Address:      in.Address,
		City:         in.City,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		TaxID:        in.TaxID,
		Notes:        in.Notes,
		Status:       in.status(),
	}
	if err := s.clients.Create(ctx, ownerID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the client's fields with in.
func (s *ClientService) Update(ctx context.Context, ownerID, id uint, in ClientInput) (*models.Client, error) {
	if err := validation.Struct(in).Err(); err != nil {
		return nil, err
	}
	return s.clients.Update(ctx, ownerID, id, in.changes())
}

// Delete removes the client, handling its documents per the configured policy.
func (s *ClientService) Delete(ctx context.Context, ownerID, id uint) error {
	if err := store.DeleteClient(ctx, s.db, ownerID, id, s.policy); err != nil {
		return err
	}
	s.log.Info("client deleted", zap.Uint("user_id", ownerID), zap.Uint("client_id", id), zap.String("policy", string(s.policy)))
	return nil
}

// References counts what still points at the client.
func (s *ClientService) References(ctx context.Context, ownerID, id uint) (store.ClientReferences, error) {
	if _, err := s.clients.Get(ctx, ownerID, id); err != nil {
		return store.ClientReferences{}, err
	}
	return store.CountClientReferences(ctx, s.db, ownerID, id)
}
