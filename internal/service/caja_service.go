package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/dto"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"
	"github.com/juan135072/chamos-barber-app-sub003/internal/money"
	"github.com/juan135072/chamos-barber-app-sub003/internal/repository"
	"github.com/juan135072/chamos-barber-app-sub003/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CajaService interface {
	Abrir(ctx context.Context, operadorID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionResponse, error)
	RegistrarVenta(ctx context.Context, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	RegistrarAjuste(ctx context.Context, req dto.AjusteRequest) (*dto.MovimientoResponse, error)
	Cerrar(ctx context.Context, req dto.CerrarCajaRequest) (*dto.SesionResponse, error)
	ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteSesionResponse, error)
	SesionActiva(ctx context.Context, operadorID uuid.UUID) (*dto.SesionResponse, error)
	Historial(ctx context.Context, page, limit int) (*dto.SesionListResponse, error)
}

type cajaService struct {
	repo       repository.CajaRepository
	facturas   repository.FacturaRepository
	barberos   repository.BarberoRepository
	dispatcher *worker.Dispatcher
}

func NewCajaService(
	repo repository.CajaRepository,
	facturas repository.FacturaRepository,
	barberos repository.BarberoRepository,
	dispatcher *worker.Dispatcher,
) CajaService {
	return &cajaService{repo: repo, facturas: facturas, barberos: barberos, dispatcher: dispatcher}
}

// timeNow is swapped in tests for deterministic close timestamps.
var timeNow = time.Now

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, operadorID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionResponse, error) {
	if req.MontoInicial < 0 {
		return nil, apierror.Validation("el monto inicial no puede ser negativo")
	}

	sesion := &model.CajaSesion{
		OperadorID:    operadorID,
		MontoInicial:  req.MontoInicial,
		MontoEsperado: req.MontoInicial,
		Estado:        model.SesionAbierta,
	}

	// Session row and apertura movement are one atomic unit: if the movement
	// insert fails the session must not survive holding the operator's slot.
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateSesionTx(tx, sesion); err != nil {
			// The partial unique index rejects a second open session for
			// the same operator; the racing loser lands here.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierror.Conflict("ya existe una sesión de caja abierta para este operador")
			}
			return err
		}
		apertura := &model.MovimientoCaja{
			SesionID:    sesion.ID,
			Tipo:        model.MovApertura,
			Monto:       req.MontoInicial,
			Descripcion: "Apertura de caja",
		}
		return s.repo.CreateMovimientoTx(tx, apertura)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Str("operador_id", operadorID.String()).
		Int64("monto_inicial", req.MontoInicial).
		Msg("caja: sesión abierta")

	return sesionToResponse(sesion), nil
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
// One ACID transaction:
//  1. Create the factura with its split and items
//  2. Append the venta movement (carrying the idempotency key)
//  3. Atomically bump monto_esperado, guarded by estado='abierta'
//
// A concurrent close between the pre-flight read and the commit makes the
// guarded UPDATE hit zero rows, which rolls the whole sale back.

func (s *cajaService) RegistrarVenta(ctx context.Context, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	sesionID, err := uuid.Parse(req.SesionID)
	if err != nil {
		return nil, apierror.Validation("sesion_id inválido")
	}
	barberoID, err := uuid.Parse(req.BarberoID)
	if err != nil {
		return nil, apierror.Validation("barbero_id inválido")
	}
	var citaID *uuid.UUID
	if req.CitaID != nil {
		cid, err := uuid.Parse(*req.CitaID)
		if err != nil {
			return nil, apierror.Validation("cita_id inválido")
		}
		citaID = &cid
	}

	// Replay of an already-registered sale returns the original factura.
	if req.ClaveOperacion != nil {
		if resp, ok := s.ventaExistente(ctx, *req.ClaveOperacion); ok {
			return resp, nil
		}
	}

	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, apierror.NotFound("sesión de caja no encontrada")
	}
	if sesion.Estado != model.SesionAbierta {
		return nil, apierror.Conflict("la sesión de caja está cerrada")
	}

	barbero, err := s.barberos.FindByID(ctx, barberoID)
	if err != nil {
		return nil, apierror.NotFound("barbero no encontrado")
	}
	if !barbero.Activo {
		return nil, apierror.Validation("el barbero está inactivo")
	}

	var total int64
	for _, item := range req.Items {
		total += item.PrecioUnitario * int64(item.Cantidad)
	}
	comision, casa, err := money.Split(total, barbero.PorcentajeComision)
	if err != nil {
		return nil, apierror.Validation(err.Error())
	}

	factura := model.Factura{
		BarberoID:          barberoID,
		CitaID:             citaID,
		ClienteNombre:      req.ClienteNombre,
		Total:              total,
		PorcentajeComision: barbero.PorcentajeComision,
		ComisionBarbero:    comision,
		IngresoCasa:        casa,
		MetodoPago:         req.MetodoPago,
	}
	for i, item := range req.Items {
		factura.Items = append(factura.Items, model.FacturaItem{
			Orden:          i,
			Descripcion:    item.Descripcion,
			PrecioUnitario: item.PrecioUnitario,
			Cantidad:       item.Cantidad,
		})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.facturas.CreateTx(tx, &factura); err != nil {
			return err
		}

		metodo := req.MetodoPago
		mov := &model.MovimientoCaja{
			SesionID:       sesionID,
			Tipo:           model.MovVenta,
			Monto:          total,
			MetodoPago:     &metodo,
			ReferenciaID:   &factura.ID,
			ClaveOperacion: req.ClaveOperacion,
			Descripcion:    fmt.Sprintf("Venta — %s %s", barbero.Nombre, barbero.Apellido),
		}
		if err := s.repo.CreateMovimientoTx(tx, mov); err != nil {
			return err
		}

		ok, err := s.repo.IncrementarEsperadoTx(tx, sesionID, total)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.Conflict("la sesión de caja fue cerrada")
		}
		return nil
	})
	if txErr != nil {
		// Two replays racing: the partial unique index on clave_operacion
		// lets exactly one in; the loser returns the winner's factura.
		if errors.Is(txErr, gorm.ErrDuplicatedKey) && req.ClaveOperacion != nil {
			if resp, ok := s.ventaExistente(ctx, *req.ClaveOperacion); ok {
				return resp, nil
			}
		}
		return nil, txErr
	}

	log.Info().
		Str("factura_id", factura.ID.String()).
		Str("sesion_id", sesionID.String()).
		Int64("total", total).
		Int64("comision_barbero", comision).
		Msg("caja: venta registrada")

	// Re-read after commit: a concurrent sale may have bumped the running
	// total between the pre-flight read and our increment.
	esperado := sesion.MontoEsperado + total
	if actual, err := s.repo.FindSesionByID(ctx, sesionID); err == nil {
		esperado = actual.MontoEsperado
	}

	return &dto.VentaResponse{
		Factura:       *facturaToResponse(&factura),
		MontoEsperado: esperado,
	}, nil
}

// ventaExistente resolves an idempotency key to its original sale.
func (s *cajaService) ventaExistente(ctx context.Context, clave string) (*dto.VentaResponse, bool) {
	mov, err := s.repo.FindMovimientoPorClave(ctx, clave)
	if err != nil || mov.ReferenciaID == nil {
		return nil, false
	}
	factura, err := s.facturas.FindByID(ctx, *mov.ReferenciaID)
	if err != nil {
		return nil, false
	}
	esperado := int64(0)
	if sesion, err := s.repo.FindSesionByID(ctx, mov.SesionID); err == nil {
		esperado = sesion.MontoEsperado
	}
	return &dto.VentaResponse{
		Factura:       *facturaToResponse(factura),
		MontoEsperado: esperado,
	}, true
}

// ── RegistrarAjuste ───────────────────────────────────────────────────────────
// Manual ingreso/egreso: monto is signed and flows into monto_esperado under
// the same open-session guard as sales.

func (s *cajaService) RegistrarAjuste(ctx context.Context, req dto.AjusteRequest) (*dto.MovimientoResponse, error) {
	sesionID, err := uuid.Parse(req.SesionID)
	if err != nil {
		return nil, apierror.Validation("sesion_id inválido")
	}
	if req.Monto == 0 {
		return nil, apierror.Validation("el monto del ajuste no puede ser cero")
	}

	mov := &model.MovimientoCaja{
		SesionID:    sesionID,
		Tipo:        model.MovAjuste,
		Monto:       req.Monto,
		Descripcion: req.Motivo,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateMovimientoTx(tx, mov); err != nil {
			return err
		}
		ok, err := s.repo.IncrementarEsperadoTx(tx, sesionID, req.Monto)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.Conflict("no hay sesión de caja abierta con ese id")
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("sesion_id", sesionID.String()).
		Int64("monto", req.Monto).
		Str("motivo", req.Motivo).
		Msg("caja: ajuste registrado")

	return movimientoToResponse(mov), nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Blind count: the operator declares monto_real without seeing monto_esperado;
// the difference and its classification are computed here, once, at close.

func (s *cajaService) Cerrar(ctx context.Context, req dto.CerrarCajaRequest) (*dto.SesionResponse, error) {
	sesionID, err := uuid.Parse(req.SesionID)
	if err != nil {
		return nil, apierror.Validation("sesion_id inválido")
	}
	if req.MontoReal < 0 {
		return nil, apierror.Validation("el monto real no puede ser negativo")
	}

	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, apierror.NotFound("sesión de caja no encontrada")
	}
	if sesion.Estado != model.SesionAbierta {
		return nil, apierror.Conflict("la sesión de caja ya está cerrada")
	}

	diferencia := req.MontoReal - sesion.MontoEsperado
	clasificacion := money.ClasificarDiferencia(diferencia, sesion.MontoEsperado)

	// Cierre con desvío crítico requiere notas del supervisor
	if clasificacion == money.DesvioCritico && (req.Notas == nil || *req.Notas == "") {
		return nil, apierror.Validation("desvío crítico: se requieren notas del supervisor")
	}

	now := timeNow()
	montoReal := req.MontoReal
	sesion.MontoReal = &montoReal
	sesion.Diferencia = &diferencia
	sesion.ClasificacionDesvio = &clasificacion
	sesion.Notas = req.Notas
	sesion.ClosedAt = &now

	// The guarded close and its cierre movement commit or roll back together;
	// a closed session without its closing ledger entry must not exist.
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ok, err := s.repo.CerrarSesionTx(tx, sesion)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent close won the guarded UPDATE.
			return apierror.Conflict("la sesión de caja ya está cerrada")
		}
		cierre := &model.MovimientoCaja{
			SesionID:    sesionID,
			Tipo:        model.MovCierre,
			Monto:       montoReal,
			Descripcion: fmt.Sprintf("Cierre de caja — diferencia %s (%s)", money.Formatear(diferencia), clasificacion),
		}
		return s.repo.CreateMovimientoTx(tx, cierre)
	})
	if txErr != nil {
		return nil, txErr
	}
	sesion.Estado = model.SesionCerrada

	if s.dispatcher != nil {
		payload := worker.CierreJobPayload{SesionID: sesionID.String()}
		if err := s.dispatcher.EnqueueCierre(ctx, payload); err != nil {
			log.Warn().Err(err).Str("sesion_id", sesionID.String()).Msg("caja: failed to enqueue cierre report")
		}
	}

	log.Info().
		Str("sesion_id", sesionID.String()).
		Int64("monto_esperado", sesion.MontoEsperado).
		Int64("monto_real", montoReal).
		Int64("diferencia", diferencia).
		Str("clasificacion", clasificacion).
		Msg("caja: sesión cerrada")

	return sesionToResponse(sesion), nil
}

// ── ObtenerReporte ────────────────────────────────────────────────────────────

func (s *cajaService) ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteSesionResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, apierror.NotFound("sesión de caja no encontrada")
	}

	movs := make([]dto.MovimientoResponse, 0, len(sesion.Movimientos))
	for i := range sesion.Movimientos {
		movs = append(movs, *movimientoToResponse(&sesion.Movimientos[i]))
	}
	return &dto.ReporteSesionResponse{
		Sesion:      *sesionToResponse(sesion),
		Movimientos: movs,
	}, nil
}

// ── SesionActiva ──────────────────────────────────────────────────────────────

func (s *cajaService) SesionActiva(ctx context.Context, operadorID uuid.UUID) (*dto.SesionResponse, error) {
	sesion, err := s.repo.FindSesionAbiertaPorOperador(ctx, operadorID)
	if err != nil {
		return nil, apierror.NotFound("no hay sesión de caja abierta")
	}
	return sesionToResponse(sesion), nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, page, limit int) (*dto.SesionListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sesiones, total, err := s.repo.ListSesiones(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SesionResponse, 0, len(sesiones))
	for i := range sesiones {
		data = append(data, *sesionToResponse(&sesiones[i]))
	}
	return &dto.SesionListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── Mapping helpers ───────────────────────────────────────────────────────────

func sesionToResponse(s *model.CajaSesion) *dto.SesionResponse {
	resp := &dto.SesionResponse{
		ID:                  s.ID.String(),
		OperadorID:          s.OperadorID.String(),
		MontoInicial:        s.MontoInicial,
		MontoEsperado:       s.MontoEsperado,
		MontoReal:           s.MontoReal,
		Diferencia:          s.Diferencia,
		ClasificacionDesvio: s.ClasificacionDesvio,
		Estado:              s.Estado,
		Notas:               s.Notas,
		OpenedAt:            s.OpenedAt.Format("2006-01-02T15:04:05Z"),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.Format("2006-01-02T15:04:05Z")
		resp.ClosedAt = &t
	}
	return resp
}

func movimientoToResponse(m *model.MovimientoCaja) *dto.MovimientoResponse {
	resp := &dto.MovimientoResponse{
		ID:          m.ID.String(),
		Tipo:        m.Tipo,
		Monto:       m.Monto,
		MetodoPago:  m.MetodoPago,
		Descripcion: m.Descripcion,
		CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if m.ReferenciaID != nil {
		ref := m.ReferenciaID.String()
		resp.ReferenciaID = &ref
	}
	return resp
}

func facturaToResponse(f *model.Factura) *dto.FacturaResponse {
	items := make([]dto.FacturaItemResponse, 0, len(f.Items))
	for _, item := range f.Items {
		items = append(items, dto.FacturaItemResponse{
			Descripcion:    item.Descripcion,
			PrecioUnitario: item.PrecioUnitario,
			Cantidad:       item.Cantidad,
		})
	}
	resp := &dto.FacturaResponse{
		ID:                 f.ID.String(),
		BarberoID:          f.BarberoID.String(),
		ClienteNombre:      f.ClienteNombre,
		Total:              f.Total,
		PorcentajeComision: f.PorcentajeComision,
		ComisionBarbero:    f.ComisionBarbero,
		IngresoCasa:        f.IngresoCasa,
		MetodoPago:         f.MetodoPago,
		Items:              items,
		Anulada:            f.Anulada,
		MotivoAnulacion:    f.MotivoAnulacion,
		CreatedAt:          f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if f.CitaID != nil {
		cid := f.CitaID.String()
		resp.CitaID = &cid
	}
	return resp
}
