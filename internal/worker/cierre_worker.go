package worker

// cierre_worker.go
// Processes session-closing jobs from QueueCierre: generates the cierre-de-caja
// PDF report and enqueues an email to the supervisor. Runs after the session
// is already closed and committed, so a failure here never blocks the close.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/juan135072/chamos-barber-app-sub003/internal/infra"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"
	"github.com/juan135072/chamos-barber-app-sub003/internal/money"
	"github.com/juan135072/chamos-barber-app-sub003/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CierreJobPayload is the job envelope sent to QueueCierre.
type CierreJobPayload struct {
	SesionID string `json:"sesion_id"`
}

type CierreWorker struct {
	cajaRepo        repository.CajaRepository
	dispatcher      *Dispatcher
	pdfStoragePath  string
	supervisorEmail string
}

func NewCierreWorker(
	cajaRepo repository.CajaRepository,
	dispatcher *Dispatcher,
	pdfStoragePath string,
	supervisorEmail string,
) *CierreWorker {
	return &CierreWorker{
		cajaRepo:        cajaRepo,
		dispatcher:      dispatcher,
		pdfStoragePath:  pdfStoragePath,
		supervisorEmail: supervisorEmail,
	}
}

// Process handles a single cierre job:
//  1. Fetch the closed session with its movement ledger
//  2. Sum venta movements per payment method
//  3. Generate the PDF report
//  4. Enqueue the supervisor email
func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload CierreJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("cierre_worker: invalid payload")
		return
	}

	sesionID, err := uuid.Parse(payload.SesionID)
	if err != nil {
		log.Error().Str("sesion_id", payload.SesionID).Msg("cierre_worker: invalid sesion_id")
		return
	}

	sesion, err := w.cajaRepo.FindSesionByID(ctx, sesionID)
	if err != nil {
		log.Error().Err(err).Str("sesion_id", payload.SesionID).Msg("cierre_worker: sesion not found")
		return
	}

	ventasPorMetodo := make(map[string]int64)
	for _, mov := range sesion.Movimientos {
		if mov.Tipo != model.MovVenta || mov.MetodoPago == nil {
			continue
		}
		ventasPorMetodo[*mov.MetodoPago] += mov.Monto
	}

	pdfPath, err := infra.GenerateCierrePDF(sesion, ventasPorMetodo, w.pdfStoragePath)
	if err != nil {
		log.Error().Err(err).Str("sesion_id", payload.SesionID).Msg("cierre_worker: PDF generation failed")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("sesion_id", payload.SesionID).Msg("cierre_worker: PDF generated")

	if w.supervisorEmail == "" {
		return
	}

	body := fmt.Sprintf("Adjunto el reporte de cierre de caja de la sesión %s.", sesion.ID)
	if sesion.Diferencia != nil {
		body += fmt.Sprintf("\nDiferencia: %s", money.Formatear(*sesion.Diferencia))
		if sesion.ClasificacionDesvio != nil {
			body += " (" + *sesion.ClasificacionDesvio + ")"
		}
	}
	emailJob := EmailJobPayload{
		ToEmail: w.supervisorEmail,
		Subject: "Cierre de caja — Chamo's Barber",
		Body:    body,
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("sesion_id", payload.SesionID).Msg("cierre_worker: failed to enqueue email")
	}
}
