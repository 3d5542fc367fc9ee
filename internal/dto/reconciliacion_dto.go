package dto

// Mismatch kinds reported by the reconciliation run.
const (
	DiscrepanciaComision = "comision"
	DiscrepanciaSuma     = "suma"
)

// DiscrepanciaResponse is one integrity violation found by recomputing a
// factura's split. Discrepancies are reported, never auto-corrected.
type DiscrepanciaResponse struct {
	FacturaID string `json:"factura_id"`
	Tipo      string `json:"tipo"` // comision | suma
	Esperado  int64  `json:"esperado"`
	Actual    int64  `json:"actual"`
	Delta     int64  `json:"delta"`
}

type ReconciliacionResponse struct {
	Revisadas     int64                  `json:"facturas_revisadas"`
	Discrepancias []DiscrepanciaResponse `json:"discrepancias"`
}

// VerificacionSesionResponse compares a session's stored expected amount with
// the value recomputed from its movement ledger.
type VerificacionSesionResponse struct {
	SesionID         string `json:"sesion_id"`
	MontoEsperado    int64  `json:"monto_esperado"`
	MontoRecalculado int64  `json:"monto_recalculado"`
	Consistente      bool   `json:"consistente"`
}
