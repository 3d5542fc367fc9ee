package service

import (
	"context"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/dto"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"
	"github.com/juan135072/chamos-barber-app-sub003/internal/repository"

	"github.com/google/uuid"
)

// BarberoService exposes the provider directory the POS reads commission
// percentages from.
type BarberoService interface {
	Listar(ctx context.Context) ([]dto.BarberoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.BarberoResponse, error)
}

type barberoService struct {
	repo repository.BarberoRepository
}

func NewBarberoService(repo repository.BarberoRepository) BarberoService {
	return &barberoService{repo: repo}
}

func (s *barberoService) Listar(ctx context.Context) ([]dto.BarberoResponse, error) {
	barberos, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.BarberoResponse, len(barberos))
	for i := range barberos {
		resp[i] = *barberoToResponse(&barberos[i])
	}
	return resp, nil
}

func (s *barberoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.BarberoResponse, error) {
	barbero, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("barbero no encontrado")
	}
	return barberoToResponse(barbero), nil
}

func barberoToResponse(b *model.Barbero) *dto.BarberoResponse {
	return &dto.BarberoResponse{
		ID:                 b.ID.String(),
		Nombre:             b.Nombre,
		Apellido:           b.Apellido,
		PorcentajeComision: b.PorcentajeComision,
		Activo:             b.Activo,
	}
}
