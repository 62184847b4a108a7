package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/models"
	"github.com/KAsare1/Dentora-server/cmd/utils"
	"github.com/KAsare1/Dentora-server/db/dbtest"
)

func newSyncer(t *testing.T) (*Syncer, *gorm.DB) {
	t.Helper()
	gdb := dbtest.Open(t)
	return NewSyncer(gdb, logging.Discard()), gdb
}

func strPtr(s string) *string { return &s }

func TestUpsert_CreatesUser(t *testing.T) {
	s, _ := newSyncer(t)

	u, err := s.Upsert(context.Background(), Profile{
		ExternalID: "user_1", Email: "kofi@patients.test", FirstName: "Kofi", LastName: "Owusu", Phone: strPtr("+233200000000"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "user_1", u.ClerkID)
	assert.Equal(t, "kofi@patients.test", u.Email)
	assert.Equal(t, models.GenderMale, u.Gender)
	require.NotNil(t, u.Phone)
	assert.Equal(t, "+233200000000", *u.Phone)

	// The stored password is a real bcrypt hash that no empty or guessable input opens.
	_, err = bcrypt.Cost([]byte(u.Password))
	assert.NoError(t, err)
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("placeholder")))
}

func TestUpsert_UpdatesExistingUser(t *testing.T) {
	s, gdb := newSyncer(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, Profile{ExternalID: "user_1", Email: "old@patients.test", FirstName: "Kofi", Phone: strPtr("1")})
	require.NoError(t, err)
	require.NoError(t, gdb.Model(&models.User{}).Where("id = ?", first.ID).Update("gender", models.GenderFemale).Error)

	second, err := s.Upsert(ctx, Profile{ExternalID: "user_1", Email: "new@patients.test", FirstName: "Kofi", LastName: "Owusu"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new@patients.test", second.Email)
	assert.Equal(t, "Owusu", second.LastName)
	assert.Nil(t, second.Phone)
	assert.Equal(t, models.GenderFemale, second.Gender, "gender is only set on insert")
	assert.Equal(t, first.Password, second.Password, "password is only set on insert")

	var count int64
	require.NoError(t, gdb.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsert_HashesOnlyOnInsert(t *testing.T) {
	s, _ := newSyncer(t)
	ctx := context.Background()

	var calls int
	s.password = func() (string, error) {
		calls++
		return placeholderPassword()
	}

	for i := 0; i < 3; i++ {
		_, err := s.Upsert(ctx, Profile{ExternalID: "user_1", Email: "kofi@patients.test", FirstName: "Kofi"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestUpsert_RequiresExternalID(t *testing.T) {
	s, _ := newSyncer(t)
	_, err := s.Upsert(context.Background(), Profile{Email: "x@y.z"})
	assert.Error(t, err)
}

func TestCurrent(t *testing.T) {
	s, gdb := newSyncer(t)
	ctx := context.Background()

	u, err := Current(ctx, gdb)
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = Current(utils.WithExternalID(ctx, "user_1"), gdb)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = s.Upsert(ctx, Profile{ExternalID: "user_1", Email: "a@b.c"})
	require.NoError(t, err)

	u, err = Current(utils.WithExternalID(ctx, "user_1"), gdb)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "a@b.c", u.Email)
}
