package service

import (
	"context"
	"crypto/subtle"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"
	"github.com/juan135072/chamos-barber-app-sub003/internal/repository"
)

// SeguridadService is the gate in front of destructive invoice operations.
// The PIN lives in sitio_configuracion under "pos_clave_seguridad". When no
// PIN is configured the gate is OPEN: that is the documented bootstrap
// default, so a fresh install can void before an admin sets the key.
type SeguridadService interface {
	Verificar(ctx context.Context, clave string) error
	EstablecerClave(ctx context.Context, clave string) error
	GateActivo(ctx context.Context) (bool, error)
}

type seguridadService struct {
	repo repository.ConfiguracionRepository
}

func NewSeguridadService(repo repository.ConfiguracionRepository) SeguridadService {
	return &seguridadService{repo: repo}
}

func (s *seguridadService) Verificar(ctx context.Context, clave string) error {
	configurada, err := s.repo.GetValor(ctx, model.ClavePOSSeguridad)
	if err != nil {
		return err
	}
	if configurada == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(configurada), []byte(clave)) != 1 {
		return apierror.Unauthorized("clave de seguridad incorrecta")
	}
	return nil
}

func (s *seguridadService) EstablecerClave(ctx context.Context, clave string) error {
	if len(clave) < 4 {
		return apierror.Validation("la clave de seguridad debe tener al menos 4 caracteres")
	}
	return s.repo.SetValor(ctx, model.ClavePOSSeguridad, clave)
}

// GateActivo reports whether a PIN is configured.
func (s *seguridadService) GateActivo(ctx context.Context) (bool, error) {
	configurada, err := s.repo.GetValor(ctx, model.ClavePOSSeguridad)
	if err != nil {
		return false, err
	}
	return configurada != "", nil
}
