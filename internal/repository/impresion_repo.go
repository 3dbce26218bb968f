package repository

import (
	"context"
	"time"

	"sazonpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImpresionRepository interface {
	Create(ctx context.Context, t *model.TrabajoImpresion) error
	Update(ctx context.Context, t *model.TrabajoImpresion) error
	FindByVentaID(ctx context.Context, ventaID uuid.UUID) (*model.TrabajoImpresion, error)
	// ListPendingRetries returns pendiente jobs whose next_retry_at has passed,
	// oldest first, for the reprint cron.
	ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.TrabajoImpresion, error)
}

type impresionRepo struct{ db *gorm.DB }

func NewImpresionRepository(db *gorm.DB) ImpresionRepository { return &impresionRepo{db: db} }

func (r *impresionRepo) Create(ctx context.Context, t *model.TrabajoImpresion) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *impresionRepo) Update(ctx context.Context, t *model.TrabajoImpresion) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *impresionRepo) FindByVentaID(ctx context.Context, ventaID uuid.UUID) (*model.TrabajoImpresion, error) {
	var t model.TrabajoImpresion
	err := r.db.WithContext(ctx).Where("venta_id = ?", ventaID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *impresionRepo) ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.TrabajoImpresion, error) {
	var trabajos []model.TrabajoImpresion
	err := r.db.WithContext(ctx).
		Where("estado = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", "pendiente", now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&trabajos).Error
	return trabajos, err
}
