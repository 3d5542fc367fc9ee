package repository

import (
	"context"
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/dto"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FacturaRepository persists invoices. Anular and ActualizarCorreccionTx are
// both guarded by "anulada = false" so a void and a correction racing on the
// same row serialize at the database: whichever lands second sees zero rows
// affected and reports a conflict instead of resurrecting state.
type FacturaRepository interface {
	CreateTx(tx *gorm.DB, f *model.Factura) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Factura, error)
	// Anular marks the factura void exactly once; false = already void or missing.
	Anular(ctx context.Context, f *model.Factura) (bool, error)
	// ActualizarCorreccionTx overwrites the correctable fields; false = the
	// factura was voided in the meantime.
	ActualizarCorreccionTx(tx *gorm.DB, f *model.Factura) (bool, error)
	CreateCorreccionTx(tx *gorm.DB, c *model.FacturaCorreccion) error
	ReemplazarPrimerItemTx(tx *gorm.DB, facturaID uuid.UUID, descripcion string, precio int64) error
	List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error)
	// ForEachActivaEnLote streams non-voided facturas in batches for the
	// reconciliation run; fn returning an error aborts the scan.
	ForEachActivaEnLote(ctx context.Context, desde, hasta *time.Time, batchSize int, fn func(facturas []model.Factura) error) error
	DB() *gorm.DB
}

type facturaRepo struct{ db *gorm.DB }

func NewFacturaRepository(db *gorm.DB) FacturaRepository { return &facturaRepo{db: db} }

func (r *facturaRepo) DB() *gorm.DB { return r.db }

func (r *facturaRepo) CreateTx(tx *gorm.DB, f *model.Factura) error {
	return tx.Create(f).Error
}

func (r *facturaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Factura, error) {
	var f model.Factura
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("orden ASC")
		}).
		First(&f, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *facturaRepo) Anular(ctx context.Context, f *model.Factura) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Factura{}).
		Where("id = ? AND anulada = false", f.ID).
		Updates(map[string]interface{}{
			"anulada":          true,
			"motivo_anulacion": f.MotivoAnulacion,
			"anulada_por":      f.AnuladaPor,
			"fecha_anulacion":  f.FechaAnulacion,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *facturaRepo) ActualizarCorreccionTx(tx *gorm.DB, f *model.Factura) (bool, error) {
	res := tx.Model(&model.Factura{}).
		Where("id = ? AND anulada = false", f.ID).
		Updates(map[string]interface{}{
			"barbero_id":          f.BarberoID,
			"total":               f.Total,
			"porcentaje_comision": f.PorcentajeComision,
			"comision_barbero":    f.ComisionBarbero,
			"ingreso_casa":        f.IngresoCasa,
			"metodo_pago":         f.MetodoPago,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *facturaRepo) CreateCorreccionTx(tx *gorm.DB, c *model.FacturaCorreccion) error {
	return tx.Create(c).Error
}

func (r *facturaRepo) ReemplazarPrimerItemTx(tx *gorm.DB, facturaID uuid.UUID, descripcion string, precio int64) error {
	// The first item (orden=0) is the main service
	return tx.Model(&model.FacturaItem{}).
		Where("factura_id = ? AND orden = 0", facturaID).
		Updates(map[string]interface{}{
			"descripcion":     descripcion,
			"precio_unitario": precio,
		}).Error
}

func (r *facturaRepo) List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	var facturas []model.Factura
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Factura{})

	switch filter.Estado {
	case "anuladas":
		q = q.Where("anulada = true")
	case "all":
	default:
		q = q.Where("anulada = false")
	}
	if filter.Fecha != "" {
		q = q.Where("DATE(created_at) = ?", filter.Fecha)
	} else {
		q = q.Where("DATE(created_at) = CURRENT_DATE")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&facturas).Error
	return facturas, total, err
}

func (r *facturaRepo) ForEachActivaEnLote(ctx context.Context, desde, hasta *time.Time, batchSize int, fn func(facturas []model.Factura) error) error {
	q := r.db.WithContext(ctx).Model(&model.Factura{}).Where("anulada = false")
	if desde != nil {
		q = q.Where("created_at >= ?", *desde)
	}
	if hasta != nil {
		q = q.Where("created_at < ?", *hasta)
	}

	var batch []model.Factura
	res := q.Order("created_at ASC").FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	return res.Error
}
