package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/KAsare1/Dentora-server/cmd/models"
)

// NewPSQLStorage opens the Postgres handle shared by every component for the
// lifetime of the process. The caller owns it and must Close it.
func NewPSQLStorage(connString string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Tables lists every model in dependency order (parents first).
func Tables() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Doctor{},
		&models.Appointment{},
		&models.EmailNotification{},
	}
}

// Migrate creates or updates the schema, including the partial unique index
// that allows a single CONFIRMED appointment per doctor, date and time.
func Migrate(db *gorm.DB) error {
	for _, model := range Tables() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %T: %w", model, err)
		}
	}

	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_confirmed_slot
		ON appointments (doctor_id, appointment_date, appointment_time)
		WHERE status = 'CONFIRMED'`).Error
	if err != nil {
		return fmt.Errorf("error creating slot index: %w", err)
	}
	return nil
}

// DropAll removes the given tables, or every table when none are passed.
func DropAll(db *gorm.DB, tables []interface{}) error {
	if len(tables) == 0 {
		all := Tables()
		for i := len(all) - 1; i >= 0; i-- {
			tables = append(tables, all[i])
		}
	}
	for _, table := range tables {
		if err := db.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop %T: %w", table, err)
		}
	}
	return nil
}

// HealthCheck pings the database within timeout.
func HealthCheck(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
