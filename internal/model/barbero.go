package model

import (
	"time"

	"github.com/google/uuid"
)

// Barbero is the service provider whose commission percentage seeds the split
// for every new factura. The POS core reads barberos; their lifecycle is
// managed by the admin surface.
type Barbero struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre   string    `gorm:"not null"`
	Apellido string    `gorm:"not null"`
	// PorcentajeComision is the default split for new facturas (0-100)
	PorcentajeComision int  `gorm:"not null;default:50"`
	Activo             bool `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (Barbero) TableName() string { return "barberos" }
