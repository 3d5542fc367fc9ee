package infra

import (
	"fmt"

	"github.com/juan135072/chamos-barber-app-sub003/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate,
// then applies the SQL patches GORM cannot express (partial unique indexes).
// TranslateError is on so unique violations surface as gorm.ErrDuplicatedKey
// — the session repo depends on that to map a concurrent open to a Conflict.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates/updates all tables and applies the idempotent schema
// patches. Also used by the integration test suite against a throwaway
// container database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Barbero{},
		&model.CajaSesion{},
		&model.MovimientoCaja{},
		&model.Factura{},
		&model.FacturaItem{},
		&model.FacturaCorreccion{},
		&model.Configuracion{},
		&model.CitaSync{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open session per operator. The partial unique index
		// makes the constraint transactional: two terminals opening at once
		// race to the index, not to a read-then-write check.
		{"unique open session per operator", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_caja_sesion_abierta
    ON caja_sesiones (operador_id)
    WHERE estado = 'abierta'`},

		// Idempotency backstop: a retried record-sale with the same client
		// token cannot insert a second movement even if the pre-check missed.
		{"unique movement idempotency token", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_movimientos_clave_operacion
    ON movimientos_caja (clave_operacion)
    WHERE clave_operacion IS NOT NULL`},

		// Retry cron query path
		{"pending cita sync retries", `
CREATE INDEX IF NOT EXISTS idx_cita_syncs_pendientes
    ON cita_syncs (next_retry_at)
    WHERE estado = 'pendiente'`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("schema patch %q: %w", p.descr, err)
		}
	}
	return nil
}
