package database

import (
	"fmt"

	"miningpad/internal/models"
	"miningpad/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Infof("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	// Migrate core models first
	coreModels := []interface{}{
		&models.User{},
		&models.RefreshToken{},
		&models.Wallet{},
		&models.WalletAddress{},
		&models.Transaction{},
	}

	for _, model := range coreModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Warnf("migration issue for %T: %v", model, err)
		}
	}

	// Migrate referral models
	referralModels := []interface{}{
		&models.ReferralCode{},
		&models.Referral{},
		&models.ReferralStats{},
	}

	for _, model := range referralModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Warnf("migration issue for %T: %v", model, err)
		}
	}

	// Migrate progress models
	progressModels := []interface{}{
		&models.Task{},
		&models.UserTask{},
		&models.TaskProgressEntry{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.AchievementProgressEntry{},
		&models.MiningSession{},
	}

	for _, model := range progressModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Warnf("migration issue for %T: %v", model, err)
		}
	}

	logger.Infof("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
