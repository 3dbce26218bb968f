package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Venta is a completed sale. TipoOrden: "mesa" | "llevar" | "delivery".
// MetodoPago: "efectivo" | "qr".
// Total == Subtotal (no taxes or discounts modeled); Vuelto = MontoPagado - Total,
// validated >= 0 before the row is ever written.
type Venta struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClienteNit    *string   `gorm:"type:varchar(20)"`
	ClienteNombre *string
	TipoOrden     string `gorm:"type:varchar(20);not null"`
	MetodoPago    string `gorm:"type:varchar(20);not null"`
	NumeroMesa    *int
	Observaciones *string
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoPagado   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Vuelto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	// NumeroTicket is the per-cashier, per-day sequential number granted by the
	// ticket session inside the same transaction that persists this row.
	NumeroTicket int `gorm:"not null"`
	// Fecha is the local business day the ticket belongs to, matching the
	// fecha of the session that issued NumeroTicket.
	Fecha string `gorm:"type:varchar(10);not null;index"`
	// CreatedAt is stored in UTC; the local ticket timestamp is derived via clock.
	CreatedAt time.Time

	Detalles []VentaDetalle `gorm:"foreignKey:VentaID"`
	Usuario  *Usuario       `gorm:"foreignKey:UsuarioID"`
}

// VentaDetalle is one line item. ProductoNombre and PrecioUnitario are
// snapshots taken at sale time so historical tickets survive catalog edits.
type VentaDetalle struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	VentaID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID `gorm:"type:uuid;not null"`
	ProductoNombre string    `gorm:"not null"`
	Cantidad       int       `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// GORM's pluralizer leaves "-ta" words unchanged, so the table name must be
// set explicitly to match the schema-patch DDL.
func (Venta) TableName() string { return "ventas" }

// SQLite has no server-side UUID default, so IDs are assigned client-side.
func (v *Venta) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (d *VentaDetalle) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
