package repository

import (
	"context"

	"sazonpos/internal/dto"
	"sazonpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VentaRepository interface {
	// Create persists the header and its detalles in the caller's transaction
	// (GORM association create) — all rows commit or none do.
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// List pages sales of one local business day (filter.Fecha).
	List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error)
	// DB exposes the DB for transaction creation in the service layer.
	DB() *gorm.DB
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	dbtx := tx
	if dbtx == nil {
		dbtx = r.db
	}
	return dbtx.WithContext(ctx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Detalles").
		Preload("Usuario").
		First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("fecha = ?", filter.Fecha)
	if filter.UsuarioID != "" {
		q = q.Where("usuario_id = ?", filter.UsuarioID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Detalles").Preload("Usuario").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}
