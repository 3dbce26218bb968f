package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SesionTicket tracks ticket numbering for one cashier on one calendar day.
// Rows are never deleted — closing a session flips Activa and stamps EndedAt,
// leaving an append-only audit trail of numbering history.
//
// Invariants:
//   - at most one row per (usuario_id, fecha) has activa = true
//     (enforced by a partial unique index, see infra.NewDatabase)
//   - ultimo_numero_ticket only grows, by exactly 1 per committed sale
//   - a session opened after earlier sessions the same day resumes from the
//     day's maximum ultimo_numero_ticket, never from 0
type SesionTicket struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Fecha     string    `gorm:"type:varchar(10);not null;index:idx_sesiones_usuario_fecha"`
	UsuarioID uuid.UUID `gorm:"type:uuid;not null;index:idx_sesiones_usuario_fecha"`
	// UltimoNumeroTicket is 0 until the first ticket of the session is committed.
	UltimoNumeroTicket int             `gorm:"not null;default:0"`
	TotalVentas        int             `gorm:"not null;default:0"`
	TotalMonto         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Activa             bool            `gorm:"not null;default:true"`
	StartedAt          time.Time
	EndedAt            *time.Time

	Usuario *Usuario `gorm:"foreignKey:UsuarioID"`
}

func (SesionTicket) TableName() string { return "sesiones_ticket" }

func (s *SesionTicket) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
