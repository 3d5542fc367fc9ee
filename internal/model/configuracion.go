package model

import "time"

// Configuracion is the site-wide key/value settings table. The POS security
// key lives under clave "pos_clave_seguridad"; when the row is absent the
// void gate is open — a deliberate, documented default, not to be tightened
// silently.
type Configuracion struct {
	Clave     string `gorm:"primaryKey"`
	Valor     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (Configuracion) TableName() string { return "sitio_configuracion" }

// ClavePOSSeguridad is the settings key holding the void PIN.
const ClavePOSSeguridad = "pos_clave_seguridad"
