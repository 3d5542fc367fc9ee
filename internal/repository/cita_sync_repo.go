package repository

import (
	"context"
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/model"

	"gorm.io/gorm"
)

// CitaSyncRepository stores pending agenda updates for the out-of-band retry
// sweep.
type CitaSyncRepository interface {
	Create(ctx context.Context, s *model.CitaSync) error
	Update(ctx context.Context, s *model.CitaSync) error
	// ListPendingRetries returns pendiente rows whose next_retry_at has
	// passed (or was never scheduled), oldest first.
	ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.CitaSync, error)
}

type citaSyncRepo struct{ db *gorm.DB }

func NewCitaSyncRepository(db *gorm.DB) CitaSyncRepository { return &citaSyncRepo{db: db} }

func (r *citaSyncRepo) Create(ctx context.Context, s *model.CitaSync) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *citaSyncRepo) Update(ctx context.Context, s *model.CitaSync) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *citaSyncRepo) ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.CitaSync, error) {
	var syncs []model.CitaSync
	err := r.db.WithContext(ctx).
		Where("estado = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", "pendiente", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&syncs).Error
	return syncs, err
}
