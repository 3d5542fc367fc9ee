package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CitasClient talks to the agenda service that owns appointments. The POS
// core only nudges two fields there (payment state after a void, barber and
// service after a correction) and always treats failures as non-fatal —
// callers queue a CitaSync row and move on.
type CitasClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCitasClient(baseURL string) *CitasClient {
	return &CitasClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type estadoPagoPayload struct {
	EstadoPago string `json:"estado_pago"`
}

// ActualizarEstadoPago sets the payment state of a cita (e.g. back to
// "pendiente" after voiding its factura).
func (c *CitasClient) ActualizarEstadoPago(ctx context.Context, citaID, estado string) error {
	return c.patch(ctx, "/v1/citas/"+citaID+"/pago", estadoPagoPayload{EstadoPago: estado})
}

type reasignacionPayload struct {
	BarberoID  *string `json:"barbero_id,omitempty"`
	ServicioID *string `json:"servicio_id,omitempty"`
}

// ActualizarBarberoServicio propagates a POS correction to the linked cita.
func (c *CitasClient) ActualizarBarberoServicio(ctx context.Context, citaID string, barberoID, servicioID *string) error {
	return c.patch(ctx, "/v1/citas/"+citaID+"/asignacion", reasignacionPayload{
		BarberoID:  barberoID,
		ServicioID: servicioID,
	})
}

func (c *CitasClient) patch(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("citas: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("citas: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("citas: agenda unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("citas: agenda returned %d", resp.StatusCode)
	}
	return nil
}
