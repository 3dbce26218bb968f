package infra

import (
	"fmt"

	"sazonpos/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the embedded SQLite store and applies connection pragmas.
// Callers run RunMigrations once at bootstrap.
//
// The store is a single local file: SQLite itself serializes writers, and the
// pool is capped at one open connection so every transaction sees the
// single-writer semantics the ticket counter depends on.
func NewDatabase(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// RunMigrations creates or updates the schema. Also used by integration tests
// against a throwaway database file.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Producto{},
		&model.SesionTicket{},
		&model.Venta{},
		&model.VentaDetalle{},
		&model.TrabajoImpresion{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM tags cannot express.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// At most one active numbering session per (usuario, fecha) — the core
		// invariant of ticket numbering, enforced by a partial unique index.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sesion_activa_unica
		   ON sesiones_ticket (usuario_id, fecha)
		   WHERE activa = 1`,
		// Ticket numbers must be unique per cashier per business day.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_ventas_ticket_unico
		   ON ventas (usuario_id, fecha, numero_ticket)`,
		// Reprint cron query: pending jobs ordered by due time.
		`CREATE INDEX IF NOT EXISTS idx_impresion_pending_retry
		   ON trabajos_impresion (next_retry_at)
		   WHERE estado = 'pendiente' AND next_retry_at IS NOT NULL`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch: %w", err)
		}
	}
	return nil
}
