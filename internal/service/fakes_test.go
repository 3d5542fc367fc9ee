package service

// In-memory repository fakes shared by the service unit tests. They mimic the
// database guards that matter to the services: the one-open-session-per-operator
// unique index, the estado='abierta' guard on monto_esperado increments, and
// the anulada=false guard on factura updates.

import (
	"context"
	"errors"
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/dto"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── CajaRepository fake ──────────────────────────────────────────────────────

type memCajaRepo struct {
	sesiones    map[uuid.UUID]*model.CajaSesion
	movimientos []model.MovimientoCaja

	// failMovimientoTipo + movimientoErr make the next insert of that
	// movement kind fail, to exercise the transactional error paths.
	failMovimientoTipo string
	movimientoErr      error
	// onIncrementar runs once right after an increment lands, to simulate
	// a concurrent terminal racing the same session.
	onIncrementar func()
}

func newMemCajaRepo() *memCajaRepo {
	return &memCajaRepo{sesiones: make(map[uuid.UUID]*model.CajaSesion)}
}

func (r *memCajaRepo) DB() *gorm.DB { return nil }

func (r *memCajaRepo) CreateSesionTx(_ *gorm.DB, s *model.CajaSesion) error {
	for _, existing := range r.sesiones {
		if existing.OperadorID == s.OperadorID && existing.Estado == model.SesionAbierta {
			return gorm.ErrDuplicatedKey
		}
	}
	s.ID = uuid.New()
	s.OpenedAt = time.Now()
	copia := *s
	r.sesiones[s.ID] = &copia
	return nil
}

func (r *memCajaRepo) FindSesionAbiertaPorOperador(_ context.Context, operadorID uuid.UUID) (*model.CajaSesion, error) {
	for _, s := range r.sesiones {
		if s.OperadorID == operadorID && s.Estado == model.SesionAbierta {
			copia := *s
			return &copia, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.CajaSesion, error) {
	s, ok := r.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copia := *s
	copia.Movimientos = nil
	for _, m := range r.movimientos {
		if m.SesionID == id {
			copia.Movimientos = append(copia.Movimientos, m)
		}
	}
	return &copia, nil
}

func (r *memCajaRepo) IncrementarEsperadoTx(_ *gorm.DB, sesionID uuid.UUID, delta int64) (bool, error) {
	s, ok := r.sesiones[sesionID]
	if !ok || s.Estado != model.SesionAbierta {
		return false, nil
	}
	s.MontoEsperado += delta
	if r.onIncrementar != nil {
		hook := r.onIncrementar
		r.onIncrementar = nil
		hook()
	}
	return true, nil
}

func (r *memCajaRepo) CerrarSesionTx(_ *gorm.DB, s *model.CajaSesion) (bool, error) {
	stored, ok := r.sesiones[s.ID]
	if !ok || stored.Estado != model.SesionAbierta {
		return false, nil
	}
	stored.Estado = model.SesionCerrada
	stored.MontoReal = s.MontoReal
	stored.Diferencia = s.Diferencia
	stored.ClasificacionDesvio = s.ClasificacionDesvio
	stored.Notas = s.Notas
	stored.ClosedAt = s.ClosedAt
	return true, nil
}

func (r *memCajaRepo) crearMovimiento(m *model.MovimientoCaja) error {
	if r.movimientoErr != nil && r.failMovimientoTipo == m.Tipo {
		return r.movimientoErr
	}
	if m.ClaveOperacion != nil {
		for _, existing := range r.movimientos {
			if existing.ClaveOperacion != nil && *existing.ClaveOperacion == *m.ClaveOperacion {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *memCajaRepo) CreateMovimientoTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	return r.crearMovimiento(m)
}

func (r *memCajaRepo) FindMovimientoPorClave(_ context.Context, clave string) (*model.MovimientoCaja, error) {
	for i := range r.movimientos {
		if r.movimientos[i].ClaveOperacion != nil && *r.movimientos[i].ClaveOperacion == clave {
			copia := r.movimientos[i]
			return &copia, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCajaRepo) FindMovimientoVentaPorReferencia(_ context.Context, facturaID uuid.UUID) (*model.MovimientoCaja, error) {
	for i := range r.movimientos {
		m := r.movimientos[i]
		if m.Tipo == model.MovVenta && m.ReferenciaID != nil && *m.ReferenciaID == facturaID {
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCajaRepo) ListMovimientos(_ context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	var result []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.SesionID == sesionID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memCajaRepo) SumMovimientos(_ context.Context, sesionID uuid.UUID) (int64, error) {
	var sum int64
	for _, m := range r.movimientos {
		if m.SesionID == sesionID && (m.Tipo == model.MovVenta || m.Tipo == model.MovAjuste) {
			sum += m.Monto
		}
	}
	return sum, nil
}

func (r *memCajaRepo) ListSesiones(_ context.Context, page, limit int) ([]model.CajaSesion, int64, error) {
	var result []model.CajaSesion
	for _, s := range r.sesiones {
		result = append(result, *s)
	}
	return result, int64(len(result)), nil
}

// movimientosDe filters the ledger by type, for assertions.
func (r *memCajaRepo) movimientosDe(tipo string) []model.MovimientoCaja {
	var result []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.Tipo == tipo {
			result = append(result, m)
		}
	}
	return result
}

// ── FacturaRepository fake ───────────────────────────────────────────────────

type memFacturaRepo struct {
	facturas     map[uuid.UUID]*model.Factura
	correcciones []model.FacturaCorreccion
}

func newMemFacturaRepo() *memFacturaRepo {
	return &memFacturaRepo{facturas: make(map[uuid.UUID]*model.Factura)}
}

func (r *memFacturaRepo) DB() *gorm.DB { return nil }

func (r *memFacturaRepo) CreateTx(_ *gorm.DB, f *model.Factura) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	for i := range f.Items {
		f.Items[i].ID = uuid.New()
		f.Items[i].FacturaID = f.ID
	}
	copia := *f
	copia.Items = append([]model.FacturaItem(nil), f.Items...)
	r.facturas[f.ID] = &copia
	return nil
}

func (r *memFacturaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Factura, error) {
	f, ok := r.facturas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copia := *f
	copia.Items = append([]model.FacturaItem(nil), f.Items...)
	return &copia, nil
}

func (r *memFacturaRepo) Anular(_ context.Context, f *model.Factura) (bool, error) {
	stored, ok := r.facturas[f.ID]
	if !ok || stored.Anulada {
		return false, nil
	}
	stored.Anulada = true
	stored.MotivoAnulacion = f.MotivoAnulacion
	stored.AnuladaPor = f.AnuladaPor
	stored.FechaAnulacion = f.FechaAnulacion
	return true, nil
}

func (r *memFacturaRepo) ActualizarCorreccionTx(_ *gorm.DB, f *model.Factura) (bool, error) {
	stored, ok := r.facturas[f.ID]
	if !ok || stored.Anulada {
		return false, nil
	}
	stored.BarberoID = f.BarberoID
	stored.Total = f.Total
	stored.PorcentajeComision = f.PorcentajeComision
	stored.ComisionBarbero = f.ComisionBarbero
	stored.IngresoCasa = f.IngresoCasa
	stored.MetodoPago = f.MetodoPago
	return true, nil
}

func (r *memFacturaRepo) CreateCorreccionTx(_ *gorm.DB, c *model.FacturaCorreccion) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.correcciones = append(r.correcciones, *c)
	return nil
}

func (r *memFacturaRepo) ReemplazarPrimerItemTx(_ *gorm.DB, facturaID uuid.UUID, descripcion string, precio int64) error {
	stored, ok := r.facturas[facturaID]
	if !ok || len(stored.Items) == 0 {
		return errors.New("factura sin items")
	}
	stored.Items[0].Descripcion = descripcion
	stored.Items[0].PrecioUnitario = precio
	return nil
}

func (r *memFacturaRepo) List(_ context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	var result []model.Factura
	for _, f := range r.facturas {
		switch filter.Estado {
		case "anuladas":
			if !f.Anulada {
				continue
			}
		case "all":
		default:
			if f.Anulada {
				continue
			}
		}
		result = append(result, *f)
	}
	return result, int64(len(result)), nil
}

func (r *memFacturaRepo) ForEachActivaEnLote(_ context.Context, _, _ *time.Time, _ int, fn func([]model.Factura) error) error {
	var batch []model.Factura
	for _, f := range r.facturas {
		if !f.Anulada {
			batch = append(batch, *f)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return fn(batch)
}

// ── BarberoRepository fake ───────────────────────────────────────────────────

type memBarberoRepo struct {
	barberos map[uuid.UUID]*model.Barbero
}

func newMemBarberoRepo(barberos ...*model.Barbero) *memBarberoRepo {
	r := &memBarberoRepo{barberos: make(map[uuid.UUID]*model.Barbero)}
	for _, b := range barberos {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		r.barberos[b.ID] = b
	}
	return r
}

func (r *memBarberoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Barbero, error) {
	b, ok := r.barberos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (r *memBarberoRepo) List(_ context.Context) ([]model.Barbero, error) {
	var result []model.Barbero
	for _, b := range r.barberos {
		if b.Activo {
			result = append(result, *b)
		}
	}
	return result, nil
}

// ── ConfiguracionRepository fake ─────────────────────────────────────────────

type memConfiguracionRepo struct {
	valores map[string]string
}

func newMemConfiguracionRepo() *memConfiguracionRepo {
	return &memConfiguracionRepo{valores: make(map[string]string)}
}

func (r *memConfiguracionRepo) GetValor(_ context.Context, clave string) (string, error) {
	return r.valores[clave], nil
}

func (r *memConfiguracionRepo) SetValor(_ context.Context, clave, valor string) error {
	r.valores[clave] = valor
	return nil
}

// ── CitaSyncRepository fake ──────────────────────────────────────────────────

type memCitaSyncRepo struct {
	syncs []*model.CitaSync
}

func newMemCitaSyncRepo() *memCitaSyncRepo { return &memCitaSyncRepo{} }

func (r *memCitaSyncRepo) Create(_ context.Context, s *model.CitaSync) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	r.syncs = append(r.syncs, s)
	return nil
}

func (r *memCitaSyncRepo) Update(_ context.Context, s *model.CitaSync) error {
	for i, existing := range r.syncs {
		if existing.ID == s.ID {
			r.syncs[i] = s
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memCitaSyncRepo) ListPendingRetries(_ context.Context, now time.Time, limit int) ([]model.CitaSync, error) {
	var result []model.CitaSync
	for _, s := range r.syncs {
		if s.Estado == "pendiente" && (s.NextRetryAt == nil || !s.NextRetryAt.After(now)) {
			result = append(result, *s)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}
