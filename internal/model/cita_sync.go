package model

import (
	"time"

	"github.com/google/uuid"
)

// Sync actions against the agenda service.
const (
	SyncEstadoPago      = "estado_pago"
	SyncBarberoServicio = "barbero_servicio"
)

// CitaSync records a pending best-effort update against the agenda service.
// Voids and corrections must never fail because the agenda is down, so the
// primary transaction commits and the cita update is retried out-of-band by
// the retry cron until it lands or exhausts its attempts.
// Estado: "pendiente" | "completado" | "error"
type CitaSync struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID uuid.UUID `gorm:"type:uuid;index;not null"`
	CitaID    uuid.UUID `gorm:"type:uuid;not null"`
	// Accion: "estado_pago" | "barbero_servicio"
	Accion string `gorm:"type:varchar(30);not null"`
	// EstadoPago to push when Accion == estado_pago (e.g. "pendiente")
	EstadoPago *string `gorm:"type:varchar(20)"`
	// New assignment when Accion == barbero_servicio
	BarberoID   *uuid.UUID `gorm:"type:uuid"`
	ServicioID  *uuid.UUID `gorm:"type:uuid"`
	Estado      string     `gorm:"type:varchar(20);not null;default:'pendiente'"`
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CitaSync) TableName() string { return "cita_syncs" }
