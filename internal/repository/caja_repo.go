package repository

import (
	"context"

	"github.com/juan135072/chamos-barber-app-sub003/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CajaRepository persists cash sessions and their append-only movement ledger.
// There is deliberately no Update/Delete for movements — corrections are new
// entries. Session mutation happens through the two guarded UPDATEs below so
// concurrent terminals can never lose an increment or close a session twice.
type CajaRepository interface {
	// CreateSesionTx inserts the session inside the caller's transaction so
	// the session row and its apertura movement commit or roll back together.
	CreateSesionTx(tx *gorm.DB, s *model.CajaSesion) error
	FindSesionAbiertaPorOperador(ctx context.Context, operadorID uuid.UUID) (*model.CajaSesion, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.CajaSesion, error)
	// IncrementarEsperadoTx runs the atomic
	//   UPDATE caja_sesiones SET monto_esperado = monto_esperado + ?
	//   WHERE id = ? AND estado = 'abierta'
	// and reports whether a row was hit (false = closed or missing).
	IncrementarEsperadoTx(tx *gorm.DB, sesionID uuid.UUID, delta int64) (bool, error)
	// CerrarSesionTx flips estado to cerrada exactly once; false when the
	// session was already closed or does not exist. Runs in the caller's
	// transaction so the cierre movement lands with the close.
	CerrarSesionTx(tx *gorm.DB, s *model.CajaSesion) (bool, error)
	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error
	FindMovimientoPorClave(ctx context.Context, clave string) (*model.MovimientoCaja, error)
	// FindMovimientoVentaPorReferencia locates the venta movement that a
	// factura originally produced, to know which session it was sold in.
	FindMovimientoVentaPorReferencia(ctx context.Context, facturaID uuid.UUID) (*model.MovimientoCaja, error)
	ListMovimientos(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error)
	// SumMovimientos adds the signed amounts of venta/ajuste movements —
	// the recomputed counterpart of monto_esperado - monto_inicial.
	SumMovimientos(ctx context.Context, sesionID uuid.UUID) (int64, error)
	ListSesiones(ctx context.Context, page, limit int) ([]model.CajaSesion, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSesionTx(tx *gorm.DB, s *model.CajaSesion) error {
	// Single-open-session-per-operator is enforced by the partial unique
	// index idx_caja_sesion_abierta (see infra.applySchemaPatches), not by a
	// racy read-then-write. A concurrent open surfaces gorm.ErrDuplicatedKey.
	return tx.Create(s).Error
}

func (r *cajaRepo) FindSesionAbiertaPorOperador(ctx context.Context, operadorID uuid.UUID) (*model.CajaSesion, error) {
	var s model.CajaSesion
	err := r.db.WithContext(ctx).
		Where("operador_id = ? AND estado = ?", operadorID, model.SesionAbierta).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.CajaSesion, error) {
	var s model.CajaSesion
	err := r.db.WithContext(ctx).
		Preload("Movimientos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) IncrementarEsperadoTx(tx *gorm.DB, sesionID uuid.UUID, delta int64) (bool, error) {
	res := tx.Model(&model.CajaSesion{}).
		Where("id = ? AND estado = ?", sesionID, model.SesionAbierta).
		Update("monto_esperado", gorm.Expr("monto_esperado + ?", delta))
	return res.RowsAffected == 1, res.Error
}

func (r *cajaRepo) CerrarSesionTx(tx *gorm.DB, s *model.CajaSesion) (bool, error) {
	res := tx.Model(&model.CajaSesion{}).
		Where("id = ? AND estado = ?", s.ID, model.SesionAbierta).
		Updates(map[string]interface{}{
			"estado":               model.SesionCerrada,
			"monto_real":           s.MontoReal,
			"diferencia":           s.Diferencia,
			"clasificacion_desvio": s.ClasificacionDesvio,
			"notas":                s.Notas,
			"closed_at":            s.ClosedAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func (r *cajaRepo) FindMovimientoPorClave(ctx context.Context, clave string) (*model.MovimientoCaja, error) {
	var m model.MovimientoCaja
	err := r.db.WithContext(ctx).Where("clave_operacion = ?", clave).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *cajaRepo) FindMovimientoVentaPorReferencia(ctx context.Context, facturaID uuid.UUID) (*model.MovimientoCaja, error) {
	var m model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("referencia_id = ? AND tipo = ?", facturaID, model.MovVenta).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("sesion_id = ?", sesionID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) SumMovimientos(ctx context.Context, sesionID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.MovimientoCaja{}).
		Where("sesion_id = ? AND tipo IN ?", sesionID, []string{model.MovVenta, model.MovAjuste}).
		Select("COALESCE(SUM(monto), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *cajaRepo) ListSesiones(ctx context.Context, page, limit int) ([]model.CajaSesion, int64, error) {
	var sesiones []model.CajaSesion
	var total int64
	q := r.db.WithContext(ctx).Model(&model.CajaSesion{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("opened_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sesiones).Error
	return sesiones, total, err
}
