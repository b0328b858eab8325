package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Installs the commission idempotency key on databases that predate it.
// Earlier deployments deduplicated with a read-then-insert check, which
// races under concurrent webhook redelivery; rows written during that
// window may violate the new constraint, so exact duplicates are
// collapsed to the oldest row before the index is created.
func init() {
	migrationsList = append(migrationsList, &gormigrate.Migration{
		ID: "000001_commission_attribution_index",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				DELETE FROM commissions a
				USING commissions b
				WHERE a.source_user_id = b.source_user_id
				  AND a.partner_id = b.partner_id
				  AND a.billing_period = b.billing_period
				  AND a.created_at > b.created_at
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_commission_attribution
				ON commissions (partner_id, source_user_id, billing_period)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_commission_attribution`).Error
		},
	})
}
