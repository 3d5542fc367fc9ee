package service

import (
	"context"
	"fmt"
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/dto"
	"github.com/juan135072/chamos-barber-app-sub003/internal/infra"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"
	"github.com/juan135072/chamos-barber-app-sub003/internal/money"
	"github.com/juan135072/chamos-barber-app-sub003/internal/repository"
	"github.com/juan135072/chamos-barber-app-sub003/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type FacturaService interface {
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.FacturaResponse, error)
	Listar(ctx context.Context, filter dto.FacturaFilter) (*dto.FacturaListResponse, error)
	Anular(ctx context.Context, id uuid.UUID, usuario string, req dto.AnularFacturaRequest) (*dto.FacturaResponse, error)
	Corregir(ctx context.Context, id uuid.UUID, req dto.CorregirFacturaRequest) (*dto.FacturaResponse, error)
}

type facturaService struct {
	repo         repository.FacturaRepository
	cajaRepo     repository.CajaRepository
	barberos     repository.BarberoRepository
	seguridad    SeguridadService
	citaSyncRepo repository.CitaSyncRepository
	citasClient  *infra.CitasClient
	cb           *infra.CircuitBreaker
}

func NewFacturaService(
	repo repository.FacturaRepository,
	cajaRepo repository.CajaRepository,
	barberos repository.BarberoRepository,
	seguridad SeguridadService,
	citaSyncRepo repository.CitaSyncRepository,
	citasClient *infra.CitasClient,
	cb *infra.CircuitBreaker,
) FacturaService {
	return &facturaService{
		repo:         repo,
		cajaRepo:     cajaRepo,
		barberos:     barberos,
		seguridad:    seguridad,
		citaSyncRepo: citaSyncRepo,
		citasClient:  citasClient,
		cb:           cb,
	}
}

func (s *facturaService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.FacturaResponse, error) {
	factura, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("factura no encontrada")
	}
	return facturaToResponse(factura), nil
}

func (s *facturaService) Listar(ctx context.Context, filter dto.FacturaFilter) (*dto.FacturaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 50
	}
	facturas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.FacturaResponse, 0, len(facturas))
	for i := range facturas {
		data = append(data, *facturaToResponse(&facturas[i]))
	}
	return &dto.FacturaListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── Anular ────────────────────────────────────────────────────────────────────
// Voiding is terminal and gated by the POS security key. The factura row keeps
// its monetary fields for history; if the originating session is still open an
// inverse ajuste backs the money out of monto_esperado. The linked cita (if
// any) is nudged back to estado_pago='pendiente' — best effort, never fatal.

func (s *facturaService) Anular(ctx context.Context, id uuid.UUID, usuario string, req dto.AnularFacturaRequest) (*dto.FacturaResponse, error) {
	if err := s.seguridad.Verificar(ctx, req.ClaveSeguridad); err != nil {
		return nil, err
	}

	factura, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("factura no encontrada")
	}
	if factura.Anulada {
		return nil, apierror.Conflict("la factura ya está anulada")
	}

	now := timeNow()
	factura.Anulada = true
	factura.MotivoAnulacion = &req.Motivo
	factura.AnuladaPor = &usuario
	factura.FechaAnulacion = &now

	ok, err := s.repo.Anular(ctx, factura)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent void or correction got there first.
		return nil, apierror.Conflict("la factura ya está anulada")
	}

	// Back the sale out of the session ledger while it is still open. A
	// closed session keeps its history untouched — the void shows up in
	// reporting, not in a sealed count.
	if mov, err := s.cajaRepo.FindMovimientoVentaPorReferencia(ctx, id); err == nil {
		s.revertirEnSesion(ctx, mov.SesionID, factura, req.Motivo)
	}

	if factura.CitaID != nil {
		estado := "pendiente"
		s.sincronizarCita(ctx, &model.CitaSync{
			FacturaID:  factura.ID,
			CitaID:     *factura.CitaID,
			Accion:     model.SyncEstadoPago,
			EstadoPago: &estado,
			Estado:     "pendiente",
		})
	}

	log.Info().
		Str("factura_id", id.String()).
		Str("anulada_por", usuario).
		Str("motivo", req.Motivo).
		Msg("factura: anulada")

	return facturaToResponse(factura), nil
}

// revertirEnSesion appends the inverse ajuste and decrements monto_esperado,
// but only while the session is still open (the guarded UPDATE enforces it).
func (s *facturaService) revertirEnSesion(ctx context.Context, sesionID uuid.UUID, factura *model.Factura, motivo string) {
	txErr := runTx(ctx, s.cajaRepo.DB(), func(tx *gorm.DB) error {
		ok, err := s.cajaRepo.IncrementarEsperadoTx(tx, sesionID, -factura.Total)
		if err != nil {
			return err
		}
		if !ok {
			// Session already closed — nothing to revert.
			return nil
		}
		ref := factura.ID
		mov := &model.MovimientoCaja{
			SesionID:     sesionID,
			Tipo:         model.MovAjuste,
			Monto:        -factura.Total,
			MetodoPago:   &factura.MetodoPago,
			ReferenciaID: &ref,
			Descripcion:  fmt.Sprintf("Anulación de factura — %s", motivo),
		}
		return s.cajaRepo.CreateMovimientoTx(tx, mov)
	})
	if txErr != nil {
		log.Error().Err(txErr).
			Str("factura_id", factura.ID.String()).
			Str("sesion_id", sesionID.String()).
			Msg("factura: failed to revert sale in session ledger")
	}
}

// ── Corregir ──────────────────────────────────────────────────────────────────
// In-place correction of barbero, main service, or payment method. The split
// is recomputed with the (possibly new) barber's percentage and an immutable
// FacturaCorreccion row snapshots the prior values before the overwrite.

func (s *facturaService) Corregir(ctx context.Context, id uuid.UUID, req dto.CorregirFacturaRequest) (*dto.FacturaResponse, error) {
	if req.NuevoBarberoID == nil && req.NuevoServicio == nil && req.NuevoMetodoPago == nil {
		return nil, apierror.Validation("nada que corregir")
	}

	factura, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("factura no encontrada")
	}
	if factura.Anulada {
		return nil, apierror.Conflict("no se puede corregir una factura anulada")
	}
	if len(factura.Items) == 0 {
		return nil, apierror.Internal("factura sin items")
	}

	anterior := model.FacturaCorreccion{
		FacturaID:          factura.ID,
		BarberoAnterior:    factura.BarberoID,
		TotalAnterior:      factura.Total,
		PorcentajeAnterior: factura.PorcentajeComision,
		ComisionAnterior:   factura.ComisionBarbero,
		CasaAnterior:       factura.IngresoCasa,
		MetodoPagoAnterior: factura.MetodoPago,
	}

	detalle := ""
	barberoCambio := false
	if req.NuevoBarberoID != nil {
		nuevoID, err := uuid.Parse(*req.NuevoBarberoID)
		if err != nil {
			return nil, apierror.Validation("nuevo_barbero_id inválido")
		}
		if nuevoID != factura.BarberoID {
			barbero, err := s.barberos.FindByID(ctx, nuevoID)
			if err != nil {
				return nil, apierror.NotFound("barbero no encontrado")
			}
			if !barbero.Activo {
				return nil, apierror.Validation("el barbero está inactivo")
			}
			factura.BarberoID = nuevoID
			factura.PorcentajeComision = barbero.PorcentajeComision
			barberoCambio = true
			detalle += fmt.Sprintf("barbero → %s %s; ", barbero.Nombre, barbero.Apellido)
		}
	}

	servicioCambio := false
	if req.NuevoServicio != nil {
		primero := factura.Items[0]
		factura.Total = factura.Total -
			primero.PrecioUnitario*int64(primero.Cantidad) +
			req.NuevoServicio.Precio*int64(primero.Cantidad)
		servicioCambio = true
		detalle += fmt.Sprintf("servicio → %s (%s); ", req.NuevoServicio.Descripcion, money.Formatear(req.NuevoServicio.Precio))
	}

	if req.NuevoMetodoPago != nil && *req.NuevoMetodoPago != factura.MetodoPago {
		factura.MetodoPago = *req.NuevoMetodoPago
		detalle += "metodo_pago → " + *req.NuevoMetodoPago + "; "
	}

	if detalle == "" {
		return nil, apierror.Validation("nada que corregir")
	}
	anterior.Detalle = detalle

	comision, casa, err := money.Split(factura.Total, factura.PorcentajeComision)
	if err != nil {
		return nil, apierror.Validation(err.Error())
	}
	factura.ComisionBarbero = comision
	factura.IngresoCasa = casa

	deltaTotal := factura.Total - anterior.TotalAnterior

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateCorreccionTx(tx, &anterior); err != nil {
			return err
		}
		ok, err := s.repo.ActualizarCorreccionTx(tx, factura)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.Conflict("la factura fue anulada mientras se corregía")
		}
		if servicioCambio {
			if err := s.repo.ReemplazarPrimerItemTx(tx, factura.ID, req.NuevoServicio.Descripcion, req.NuevoServicio.Precio); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if servicioCambio {
		factura.Items[0].Descripcion = req.NuevoServicio.Descripcion
		factura.Items[0].PrecioUnitario = req.NuevoServicio.Precio
	}

	// A price change moves money; keep the open session ledger in step.
	if deltaTotal != 0 {
		if mov, err := s.cajaRepo.FindMovimientoVentaPorReferencia(ctx, id); err == nil {
			s.ajustarPorCorreccion(ctx, mov.SesionID, factura, deltaTotal)
		}
	}

	if factura.CitaID != nil && (barberoCambio || servicioCambio) {
		sync := &model.CitaSync{
			FacturaID: factura.ID,
			CitaID:    *factura.CitaID,
			Accion:    model.SyncBarberoServicio,
			Estado:    "pendiente",
		}
		if barberoCambio {
			b := factura.BarberoID
			sync.BarberoID = &b
		}
		if servicioCambio && req.NuevoServicio.ServicioID != nil {
			if sid, err := uuid.Parse(*req.NuevoServicio.ServicioID); err == nil {
				sync.ServicioID = &sid
			}
		}
		s.sincronizarCita(ctx, sync)
	}

	log.Info().
		Str("factura_id", id.String()).
		Str("detalle", detalle).
		Int64("delta_total", deltaTotal).
		Msg("factura: corregida")

	return facturaToResponse(factura), nil
}

func (s *facturaService) ajustarPorCorreccion(ctx context.Context, sesionID uuid.UUID, factura *model.Factura, delta int64) {
	txErr := runTx(ctx, s.cajaRepo.DB(), func(tx *gorm.DB) error {
		ok, err := s.cajaRepo.IncrementarEsperadoTx(tx, sesionID, delta)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		ref := factura.ID
		mov := &model.MovimientoCaja{
			SesionID:     sesionID,
			Tipo:         model.MovAjuste,
			Monto:        delta,
			MetodoPago:   &factura.MetodoPago,
			ReferenciaID: &ref,
			Descripcion:  "Corrección de factura",
		}
		return s.cajaRepo.CreateMovimientoTx(tx, mov)
	})
	if txErr != nil {
		log.Error().Err(txErr).
			Str("factura_id", factura.ID.String()).
			Str("sesion_id", sesionID.String()).
			Msg("factura: failed to adjust session ledger after correction")
	}
}

// sincronizarCita persists the pending agenda update, then tries it once
// inline through the circuit breaker. On failure the row stays pendiente and
// the retry cron picks it up.
func (s *facturaService) sincronizarCita(ctx context.Context, sync *model.CitaSync) {
	if err := s.citaSyncRepo.Create(ctx, sync); err != nil {
		log.Error().Err(err).
			Str("factura_id", sync.FacturaID.String()).
			Str("accion", sync.Accion).
			Msg("factura: failed to persist cita sync")
		return
	}
	if s.citasClient == nil || s.cb == nil {
		return
	}

	cbErr := s.cb.Execute(func() error {
		return worker.EjecutarCitaSync(ctx, s.citasClient, sync)
	})
	if cbErr != nil {
		errMsg := cbErr.Error()
		sync.RetryCount = 1
		sync.LastError = &errMsg
		next := timeNow().Add(time.Minute)
		sync.NextRetryAt = &next
		_ = s.citaSyncRepo.Update(ctx, sync)
		log.Warn().Err(cbErr).
			Str("cita_id", sync.CitaID.String()).
			Str("accion", sync.Accion).
			Msg("factura: agenda unreachable, cita sync left for retry cron")
		return
	}

	sync.Estado = "completado"
	_ = s.citaSyncRepo.Update(ctx, sync)
}
