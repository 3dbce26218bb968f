package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrabajoImpresion records every receipt print attempt.
// Estado: "pendiente" | "impreso" | "error"
// Printing is strictly best-effort: a row stuck in "pendiente" is retried by
// the background cron; it never blocks or fails the sale it belongs to.
type TrabajoImpresion struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	VentaID uuid.UUID `gorm:"type:uuid;not null;index"`
	Estado  string    `gorm:"type:varchar(20);not null;default:'pendiente'"`
	// PDFPath points at the archive copy written alongside the thermal print.
	PDFPath     *string
	RetryCount  int `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"index"`
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Venta *Venta `gorm:"foreignKey:VentaID"`
}

func (TrabajoImpresion) TableName() string { return "trabajos_impresion" }

func (t *TrabajoImpresion) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
