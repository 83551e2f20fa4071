package database

import (
	"fmt"
	"os"

	"github.com/wayride/wayride-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	// TranslateError turns driver unique-key violations into
	// gorm.ErrDuplicatedKey, which the offer path depends on
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.DriverProfile{},
		&models.RiderProfile{},
		&models.RideRequest{},
		&models.RideOffer{},
		&models.CompletedRide{},
		&models.USCity{},
	)
	if err != nil {
		return err
	}

	// Role values are a closed set
	db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`)
	if err := db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('rider', 'driver', 'admin'))`).Error; err != nil {
		return err
	}

	return nil
}
