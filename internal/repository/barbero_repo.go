package repository

import (
	"context"

	"github.com/juan135072/chamos-barber-app-sub003/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BarberoRepository is the provider lookup: the POS core reads barberos for
// their commission percentage and never writes them.
type BarberoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Barbero, error)
	List(ctx context.Context) ([]model.Barbero, error)
}

type barberoRepo struct{ db *gorm.DB }

func NewBarberoRepository(db *gorm.DB) BarberoRepository { return &barberoRepo{db: db} }

func (r *barberoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Barbero, error) {
	var b model.Barbero
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *barberoRepo) List(ctx context.Context) ([]model.Barbero, error) {
	var barberos []model.Barbero
	err := r.db.WithContext(ctx).
		Where("activo = true").
		Order("apellido ASC, nombre ASC").
		Find(&barberos).Error
	return barberos, err
}
