package model

import (
	"time"

	"github.com/google/uuid"
)

// CajaSesion represents the lifecycle of a cash register session.
// Estado: "abierta" | "cerrada" (terminal — a closed session never reopens
// and accepts no further movements).
//
// MontoEsperado is the running expected closing amount in centavos. It starts
// at MontoInicial and is only ever mutated through the atomic increment in
// CajaRepository (never read-modify-write from the service layer).
type CajaSesion struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OperadorID   uuid.UUID `gorm:"type:uuid;not null;index"`
	MontoInicial int64     `gorm:"not null"`
	// MontoEsperado == MontoInicial + SUM(monto) over venta/ajuste movements
	MontoEsperado int64  `gorm:"not null"`
	MontoReal     *int64 // counted at close
	// Diferencia = MontoReal - MontoEsperado, set exactly once at close
	Diferencia *int64
	// ClasificacionDesvio: "normal" | "advertencia" | "critico"
	ClasificacionDesvio *string `gorm:"type:varchar(20)"`
	Estado              string  `gorm:"type:varchar(20);not null;default:'abierta'"`
	Notas               *string
	OpenedAt            time.Time
	ClosedAt            *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionID"`
}

func (CajaSesion) TableName() string { return "caja_sesiones" }

// Session states.
const (
	SesionAbierta = "abierta"
	SesionCerrada = "cerrada"
)

// Movement kinds.
const (
	MovApertura = "apertura"
	MovVenta    = "venta"
	MovCierre   = "cierre"
	MovAjuste   = "ajuste"
)

// MovimientoCaja is an immutable event in the cash register ledger.
// Tipo: "apertura" | "venta" | "cierre" | "ajuste"
// Movements are NEVER modified or deleted — corrections create new entries.
// Creation order is significant: readers must sort by created_at ASC.
type MovimientoCaja struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionID uuid.UUID `gorm:"type:uuid;index;not null"`
	Tipo     string    `gorm:"type:varchar(20);not null"`
	// Monto is signed: ventas are positive, egress ajustes negative.
	// cierre stores the counted amount and does not feed MontoEsperado.
	Monto      int64   `gorm:"not null"`
	MetodoPago *string `gorm:"type:varchar(20)"`
	// ReferenciaID links to the originating Factura for venta movements
	ReferenciaID *uuid.UUID `gorm:"type:uuid"`
	// ClaveOperacion is the client-generated idempotency token; a retried
	// record-sale with the same key must not duplicate the movement
	ClaveOperacion *string `gorm:"type:varchar(64)"`
	Descripcion    string  `gorm:"not null"`
	CreatedAt      time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
