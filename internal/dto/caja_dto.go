package dto

// All amounts cross the API as int64 centavos.

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial int64 `json:"monto_inicial" validate:"min=0"`
}

type RegistrarVentaRequest struct {
	SesionID      string  `json:"sesion_id"      validate:"required,uuid"`
	BarberoID     string  `json:"barbero_id"     validate:"required,uuid"`
	CitaID        *string `json:"cita_id"        validate:"omitempty,uuid"`
	ClienteNombre *string `json:"cliente_nombre"`
	MetodoPago    string  `json:"metodo_pago"    validate:"required,oneof=efectivo tarjeta transferencia"`
	Items         []ItemVentaRequest `json:"items" validate:"required,min=1,dive"`
	// ClaveOperacion is a client-generated idempotency token; resending the
	// same sale after a timeout returns the original factura instead of
	// duplicating the movement.
	ClaveOperacion *string `json:"clave_operacion" validate:"omitempty,min=8,max=64"`
}

type ItemVentaRequest struct {
	Descripcion    string `json:"descripcion"     validate:"required,min=2"`
	PrecioUnitario int64  `json:"precio_unitario" validate:"required,gt=0"`
	Cantidad       int    `json:"cantidad"        validate:"required,min=1"`
}

type AjusteRequest struct {
	SesionID string `json:"sesion_id" validate:"required,uuid"`
	// Monto is signed: positive for ingress, negative for egress
	Monto  int64  `json:"monto"  validate:"required"`
	Motivo string `json:"motivo" validate:"required,min=3"`
}

type CerrarCajaRequest struct {
	SesionID  string  `json:"sesion_id"  validate:"required,uuid"`
	MontoReal int64   `json:"monto_real" validate:"min=0"`
	Notas     *string `json:"notas"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionResponse struct {
	ID                  string  `json:"id"`
	OperadorID          string  `json:"operador_id"`
	MontoInicial        int64   `json:"monto_inicial"`
	MontoEsperado       int64   `json:"monto_esperado"`
	MontoReal           *int64  `json:"monto_real,omitempty"`
	Diferencia          *int64  `json:"diferencia,omitempty"`
	ClasificacionDesvio *string `json:"clasificacion_desvio,omitempty"`
	Estado              string  `json:"estado"`
	Notas               *string `json:"notas,omitempty"`
	OpenedAt            string  `json:"opened_at"`
	ClosedAt            *string `json:"closed_at,omitempty"`
}

type MovimientoResponse struct {
	ID           string  `json:"id"`
	Tipo         string  `json:"tipo"`
	Monto        int64   `json:"monto"`
	MetodoPago   *string `json:"metodo_pago,omitempty"`
	ReferenciaID *string `json:"referencia_id,omitempty"`
	Descripcion  string  `json:"descripcion"`
	CreatedAt    string  `json:"created_at"`
}

type ReporteSesionResponse struct {
	Sesion      SesionResponse       `json:"sesion"`
	Movimientos []MovimientoResponse `json:"movimientos"`
}

type VentaResponse struct {
	Factura       FacturaResponse `json:"factura"`
	MontoEsperado int64           `json:"monto_esperado"`
}

type SesionListResponse struct {
	Data  []SesionResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
