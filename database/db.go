package database

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mconnect-bus/models"
)

// Connect opens the Postgres connection from env configuration.
// A missing .env file is fine; settings may come from the environment.
func Connect() (*gorm.DB, error) {
	_ = godotenv.Load()

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "db"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), port)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	return db, nil
}

// AutoMigrate creates/updates the outbox tables (non-destructive).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Request{},
		&models.TreasuryRequest{},
		&models.TreasuryResponse{},
		&models.Response{},
		&models.ErrorRecord{},
	)
}
