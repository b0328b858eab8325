package affiliate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/ticketwatch/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection, or each pooled connection gets its own memory db
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Subscription{},
		&models.Commission{},
		&models.Payout{},
		&models.WebhookEvent{},
	))

	return db
}

func createProfile(t *testing.T, db *gorm.DB, profile *models.Profile) *models.Profile {
	t.Helper()
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func createPartner(t *testing.T, db *gorm.DB, email, code string) *models.Profile {
	t.Helper()
	return createProfile(t, db, &models.Profile{
		Email:        email,
		Role:         models.RoleAffiliate,
		ReferralCode: &code,
	})
}

func commissionCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Commission{}).Count(&count).Error)
	return count
}
