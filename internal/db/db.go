package db

import (
	"log"

	"crosspoll/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to Postgres and migrates the schema. The handle is returned
// to the caller rather than held as package state so services and tests can
// be wired against their own database.
func Open(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Surfaces unique-constraint violations as gorm.ErrDuplicatedKey,
		// which the vote write path relies on.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	log.Println("Database migration completed")

	return gdb, nil
}

// Migrate creates or updates the schema. Shared with the test harness, which
// runs it against an in-memory SQLite database.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Poll{},
		&models.Answer{},
		&models.Vote{},
	)
}
