package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AnularFacturaRequest struct {
	Motivo         string `json:"motivo"           validate:"required,min=3"`
	ClaveSeguridad string `json:"clave_seguridad"`
}

type CorregirFacturaRequest struct {
	NuevoBarberoID  *string        `json:"nuevo_barbero_id"  validate:"omitempty,uuid"`
	NuevoServicio   *NuevoServicio `json:"nuevo_servicio"`
	NuevoMetodoPago *string        `json:"nuevo_metodo_pago" validate:"omitempty,oneof=efectivo tarjeta transferencia"`
}

type NuevoServicio struct {
	ServicioID  *string `json:"servicio_id" validate:"omitempty,uuid"`
	Descripcion string  `json:"descripcion" validate:"required,min=2"`
	Precio      int64   `json:"precio"      validate:"required,gt=0"`
}

type FacturaFilter struct {
	Fecha  string // YYYY-MM-DD; empty = today
	Estado string // "activas" | "anuladas" | "all"
	Page   int
	Limit  int
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type FacturaItemResponse struct {
	Descripcion    string `json:"descripcion"`
	PrecioUnitario int64  `json:"precio_unitario"`
	Cantidad       int    `json:"cantidad"`
}

type FacturaResponse struct {
	ID                 string                `json:"id"`
	BarberoID          string                `json:"barbero_id"`
	CitaID             *string               `json:"cita_id,omitempty"`
	ClienteNombre      *string               `json:"cliente_nombre,omitempty"`
	Total              int64                 `json:"total"`
	PorcentajeComision int                   `json:"porcentaje_comision"`
	ComisionBarbero    int64                 `json:"comision_barbero"`
	IngresoCasa        int64                 `json:"ingreso_casa"`
	MetodoPago         string                `json:"metodo_pago"`
	Items              []FacturaItemResponse `json:"items"`
	Anulada            bool                  `json:"anulada"`
	MotivoAnulacion    *string               `json:"motivo_anulacion,omitempty"`
	CreatedAt          string                `json:"created_at"`
}

type FacturaListResponse struct {
	Data  []FacturaResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
