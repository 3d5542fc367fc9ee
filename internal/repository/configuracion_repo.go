package repository

import (
	"context"
	"errors"

	"github.com/juan135072/chamos-barber-app-sub003/internal/model"

	"gorm.io/gorm"
)

// ConfiguracionRepository reads the site settings table. GetValor returns
// ("", nil) when the key is absent — callers decide what an unset value means
// (the security gate treats it as "gate open").
type ConfiguracionRepository interface {
	GetValor(ctx context.Context, clave string) (string, error)
	SetValor(ctx context.Context, clave, valor string) error
}

type configuracionRepo struct{ db *gorm.DB }

func NewConfiguracionRepository(db *gorm.DB) ConfiguracionRepository {
	return &configuracionRepo{db: db}
}

func (r *configuracionRepo) GetValor(ctx context.Context, clave string) (string, error) {
	var c model.Configuracion
	err := r.db.WithContext(ctx).First(&c, "clave = ?", clave).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.Valor, nil
}

func (r *configuracionRepo) SetValor(ctx context.Context, clave, valor string) error {
	return r.db.WithContext(ctx).
		Where(model.Configuracion{Clave: clave}).
		Assign(model.Configuracion{Valor: valor}).
		FirstOrCreate(&model.Configuracion{}).Error
}
