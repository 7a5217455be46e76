package database

import (
	"retail-backend/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Shop{},
		&model.Product{},
		&model.ShopInventory{},
		&model.RestockRequest{},
		&model.StockMovement{},
		&model.Notification{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to auto-migrate models")
	}

	migrateLegacyStatuses(db)

	return db, nil
}

// migrateLegacyStatuses rewrites status values from earlier deployments
// into the current vocabulary. Idempotent; safe to run on every boot.
func migrateLegacyStatuses(db *gorm.DB) {
	renames := map[string]string{
		"pending":    model.RestockStatusWaiting,
		"in_transit": model.RestockStatusApproved,
	}
	for old, current := range renames {
		res := db.Model(&model.RestockRequest{}).
			Where("status = ?", old).
			Update("status", current)
		if res.Error != nil {
			log.Warn().Err(res.Error).Str("from", old).Msg("legacy status migration failed")
			continue
		}
		if res.RowsAffected > 0 {
			log.Info().Int64("rows", res.RowsAffected).
				Str("from", old).Str("to", current).
				Msg("migrated legacy restock statuses")
		}
	}
}
