package database

import (
	"fmt"

	"buchhaltung-backend/models"

	"gorm.io/gorm"
)

// TenantModels is every table living in a tenant schema, in FK order.
// The engine test-suites reuse this list against an in-memory database.
var TenantModels = []any{
	&models.Contact{},
	&models.Nominal{},
	&models.VatCode{},
	&models.CashBook{},
	&models.Header{},
	&models.Line{},
	&models.Matching{},
	&models.NominalTransaction{},
	&models.VatTransaction{},
	&models.CashBookTransaction{},
	&models.IdempotencyKey{},
}

// MigrateTenantSchema applies (idempotent) schema migrations for a single
// tenant schema: AutoMigrate, money column types (NUMERIC(10,2)), the
// natural-key unique indexes on the subsidiary ledgers, and basic CHECKs.
func MigrateTenantSchema(schema string) error {
	if schema == "" {
		return fmt.Errorf("schema name is empty")
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SET search_path = "` + schema + `", public`).Error; err != nil {
			return fmt.Errorf("set search_path failed: %w", err)
		}

		if err := tx.AutoMigrate(TenantModels...); err != nil {
			return fmt.Errorf("tenant automigrate failed: %w", err)
		}

		// Monetary columns are exact 2dp decimals; no floating point anywhere.
		alters := []string{
			`ALTER TABLE headers                ALTER COLUMN goods    TYPE numeric(10,2)`,
			`ALTER TABLE headers                ALTER COLUMN discount TYPE numeric(10,2)`,
			`ALTER TABLE headers                ALTER COLUMN vat      TYPE numeric(10,2)`,
			`ALTER TABLE headers                ALTER COLUMN total    TYPE numeric(10,2)`,
			`ALTER TABLE headers                ALTER COLUMN paid     TYPE numeric(10,2)`,
			`ALTER TABLE headers                ALTER COLUMN due      TYPE numeric(10,2)`,
			`ALTER TABLE lines                  ALTER COLUMN goods    TYPE numeric(10,2)`,
			`ALTER TABLE lines                  ALTER COLUMN vat      TYPE numeric(10,2)`,
			`ALTER TABLE matchings              ALTER COLUMN value    TYPE numeric(10,2)`,
			`ALTER TABLE nominal_transactions   ALTER COLUMN value    TYPE numeric(10,2)`,
			`ALTER TABLE vat_transactions       ALTER COLUMN vat_rate TYPE numeric(10,2)`,
			`ALTER TABLE vat_transactions       ALTER COLUMN goods    TYPE numeric(10,2)`,
			`ALTER TABLE vat_transactions       ALTER COLUMN vat      TYPE numeric(10,2)`,
			`ALTER TABLE cash_book_transactions ALTER COLUMN value    TYPE numeric(10,2)`,
			`ALTER TABLE vat_codes              ALTER COLUMN rate     TYPE numeric(10,2)`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_lines_header_line_no ON lines (header_id, line_no)`,
			`CREATE INDEX IF NOT EXISTS idx_matchings_pair ON matchings (matched_by_id, matched_to_id)`,
			`CREATE INDEX IF NOT EXISTS idx_nominal_transactions_nominal_period ON nominal_transactions (nominal_id, period)`,
			`CREATE INDEX IF NOT EXISTS idx_vat_transactions_period ON vat_transactions (period)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		checks := []string{
			// A header's status is cleared or void, nothing else.
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'headers'::regclass
					  AND conname  = 'chk_headers_status'
				) THEN
					ALTER TABLE headers
					ADD CONSTRAINT chk_headers_status
					CHECK (status IN ('c', 'v'));
				END IF;
			END $$;`,
			// Line numbers are 1-based.
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'lines'::regclass
					  AND conname  = 'chk_lines_line_no_positive'
				) THEN
					ALTER TABLE lines
					ADD CONSTRAINT chk_lines_line_no_positive
					CHECK (line_no >= 1);
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
