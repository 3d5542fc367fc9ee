package model

import (
	"time"

	"github.com/google/uuid"
)

// Factura is a recorded sale with its commission/house split.
// Monetary fields are centavos and always satisfy:
//
//	ComisionBarbero + IngresoCasa == Total
//	ComisionBarbero == floor(Total * PorcentajeComision / 100)  (unless corrected)
//
// Anulada is terminal: once set it is never unset and the monetary fields may
// no longer be corrected. Facturas are never physically deleted.
type Factura struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BarberoID uuid.UUID `gorm:"type:uuid;not null;index"`
	// CitaID is a weak reference to the appointment this sale settles.
	// The agenda owns the cita lifecycle; we only look it up and nudge its
	// payment state on void/correction.
	CitaID             *uuid.UUID `gorm:"type:uuid;index"`
	ClienteNombre      *string
	Total              int64  `gorm:"not null"`
	PorcentajeComision int    `gorm:"not null"`
	ComisionBarbero    int64  `gorm:"not null"`
	IngresoCasa        int64  `gorm:"not null"`
	MetodoPago         string `gorm:"type:varchar(20);not null"`
	Anulada            bool   `gorm:"not null;default:false"`
	MotivoAnulacion    *string
	AnuladaPor         *string
	FechaAnulacion     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Items        []FacturaItem        `gorm:"foreignKey:FacturaID"`
	Correcciones []FacturaCorreccion  `gorm:"foreignKey:FacturaID"`
}

func (Factura) TableName() string { return "facturas" }

// FacturaItem is one line of a sale. Orden preserves the original sequence;
// the first item is the main service and is the one replaced on a service
// correction.
type FacturaItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Orden          int       `gorm:"not null"`
	Descripcion    string    `gorm:"not null"`
	PrecioUnitario int64     `gorm:"not null"`
	Cantidad       int       `gorm:"not null;default:1"`
}

func (FacturaItem) TableName() string { return "factura_items" }

// FacturaCorreccion is the immutable audit record appended on every
// correction: it snapshots the monetary fields as they were BEFORE the
// overwrite, so the full history can be replayed even though the factura row
// itself carries only the current view.
type FacturaCorreccion struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID          uuid.UUID `gorm:"type:uuid;index;not null"`
	BarberoAnterior    uuid.UUID `gorm:"type:uuid;not null"`
	TotalAnterior      int64     `gorm:"not null"`
	PorcentajeAnterior int       `gorm:"not null"`
	ComisionAnterior   int64     `gorm:"not null"`
	CasaAnterior       int64     `gorm:"not null"`
	MetodoPagoAnterior string    `gorm:"type:varchar(20);not null"`
	Detalle            string    `gorm:"not null"`
	CreatedAt          time.Time
}

func (FacturaCorreccion) TableName() string { return "factura_correcciones" }
