package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KAsare1/Dentora-server/cmd/models"
	"github.com/KAsare1/Dentora-server/db"
	"github.com/KAsare1/Dentora-server/db/dbtest"
)

func TestMigrate_CreatesTablesAndSlotIndex(t *testing.T) {
	gdb := dbtest.Open(t)

	for _, table := range db.Tables() {
		assert.True(t, gdb.Migrator().HasTable(table), "%T", table)
	}

	// idempotent
	require.NoError(t, db.Migrate(gdb))

	user := models.User{ClerkID: "user_1", Email: "a@x.com", Password: "x"}
	require.NoError(t, gdb.Create(&user).Error)
	doc := models.Doctor{Name: "Dr A", Email: "dr@x.com", IsActive: true}
	require.NoError(t, gdb.Create(&doc).Error)

	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	first := models.Appointment{UserID: user.ID, DoctorID: doc.ID, Date: day, Time: "09:00", Status: models.StatusConfirmed, Duration: 30}
	require.NoError(t, gdb.Create(&first).Error)

	dup := models.Appointment{UserID: user.ID, DoctorID: doc.ID, Date: day, Time: "09:00", Status: models.StatusConfirmed, Duration: 30}
	err := gdb.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))

	// a completed appointment in the same slot is allowed
	done := models.Appointment{UserID: user.ID, DoctorID: doc.ID, Date: day, Time: "09:00", Status: models.StatusCompleted, Duration: 30}
	require.NoError(t, gdb.Create(&done).Error)
}

func TestHealthCheckAndDropAll(t *testing.T) {
	gdb := dbtest.Open(t)

	require.NoError(t, db.HealthCheck(context.Background(), gdb, time.Second))

	require.NoError(t, db.DropAll(gdb, []interface{}{&models.EmailNotification{}}))
	assert.False(t, gdb.Migrator().HasTable(&models.EmailNotification{}))
	assert.True(t, gdb.Migrator().HasTable(&models.User{}))

	require.NoError(t, db.DropAll(gdb, nil))
	assert.False(t, gdb.Migrator().HasTable(&models.User{}))
}
