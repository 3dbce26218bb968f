package repository

import (
	"context"
	"time"

	"sazonpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SesionTicketRepository is the data access contract for ticket sessions.
// Methods taking a tx run inside the caller's transaction; passing nil tx
// falls back to the repository's own handle (unit test mode).
type SesionTicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *model.SesionTicket) error
	FindActiva(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string) (*model.SesionTicket, error)
	// MaxNumeroTicket returns the highest ultimo_numero_ticket across ALL of the
	// user's sessions for fecha, active or closed. 0 when the user has none.
	MaxNumeroTicket(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string) (int, error)
	// IncrementarContador bumps the counters of the active session in one UPDATE.
	// Returns the number of rows touched: 0 means no active session existed.
	IncrementarContador(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string, monto decimal.Decimal) (int64, error)
	CerrarActiva(ctx context.Context, usuarioID uuid.UUID, fecha string, endedAt time.Time) (int64, error)
	// CerrarAnteriores deactivates every still-active session dated before fecha.
	CerrarAnteriores(ctx context.Context, fecha string, endedAt time.Time) (int64, error)
	ListByFecha(ctx context.Context, fecha string) ([]model.SesionTicket, error)
	ListByUsuarioFecha(ctx context.Context, usuarioID uuid.UUID, fecha string) ([]model.SesionTicket, error)
	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type sesionTicketRepo struct{ db *gorm.DB }

func NewSesionTicketRepository(db *gorm.DB) SesionTicketRepository {
	return &sesionTicketRepo{db: db}
}

func (r *sesionTicketRepo) DB() *gorm.DB { return r.db }

// handle resolves the effective DB: the caller's tx when inside a transaction,
// the pooled handle otherwise.
func (r *sesionTicketRepo) handle(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *sesionTicketRepo) Create(ctx context.Context, tx *gorm.DB, s *model.SesionTicket) error {
	return r.handle(ctx, tx).Create(s).Error
}

func (r *sesionTicketRepo) FindActiva(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string) (*model.SesionTicket, error) {
	var s model.SesionTicket
	err := r.handle(ctx, tx).
		Where("usuario_id = ? AND fecha = ? AND activa = ?", usuarioID, fecha, true).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sesionTicketRepo) MaxNumeroTicket(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string) (int, error) {
	var max int
	err := r.handle(ctx, tx).
		Model(&model.SesionTicket{}).
		Select("COALESCE(MAX(ultimo_numero_ticket), 0)").
		Where("usuario_id = ? AND fecha = ?", usuarioID, fecha).
		Scan(&max).Error
	return max, err
}

func (r *sesionTicketRepo) IncrementarContador(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string, monto decimal.Decimal) (int64, error) {
	res := r.handle(ctx, tx).
		Model(&model.SesionTicket{}).
		Where("usuario_id = ? AND fecha = ? AND activa = ?", usuarioID, fecha, true).
		Updates(map[string]interface{}{
			"ultimo_numero_ticket": gorm.Expr("ultimo_numero_ticket + 1"),
			"total_ventas":         gorm.Expr("total_ventas + 1"),
			"total_monto":          gorm.Expr("total_monto + ?", monto),
		})
	return res.RowsAffected, res.Error
}

func (r *sesionTicketRepo) CerrarActiva(ctx context.Context, usuarioID uuid.UUID, fecha string, endedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SesionTicket{}).
		Where("usuario_id = ? AND fecha = ? AND activa = ?", usuarioID, fecha, true).
		Updates(map[string]interface{}{
			"activa":   false,
			"ended_at": endedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *sesionTicketRepo) CerrarAnteriores(ctx context.Context, fecha string, endedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SesionTicket{}).
		Where("fecha < ? AND activa = ?", fecha, true).
		Updates(map[string]interface{}{
			"activa":   false,
			"ended_at": endedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *sesionTicketRepo) ListByFecha(ctx context.Context, fecha string) ([]model.SesionTicket, error) {
	var sesiones []model.SesionTicket
	err := r.db.WithContext(ctx).
		Preload("Usuario").
		Where("fecha = ?", fecha).
		Order("started_at ASC").
		Find(&sesiones).Error
	return sesiones, err
}

func (r *sesionTicketRepo) ListByUsuarioFecha(ctx context.Context, usuarioID uuid.UUID, fecha string) ([]model.SesionTicket, error) {
	var sesiones []model.SesionTicket
	err := r.db.WithContext(ctx).
		Where("usuario_id = ? AND fecha = ?", usuarioID, fecha).
		Order("started_at ASC").
		Find(&sesiones).Error
	return sesiones, err
}
