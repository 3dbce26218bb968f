package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Producto is one menu item. Sales snapshot Nombre and Precio onto their
// detalles, so editing or deactivating a product never rewrites history.
type Producto struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre      string    `gorm:"index;not null"`
	Descripcion *string
	Categoria   string          `gorm:"not null;index"`
	Precio      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Activo      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Producto) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
