package user

import (
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/models"
)

// Profile is the subset of an identity-provider account mirrored locally.
type Profile struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	Phone      *string
}

// Syncer writes identity-provider profiles into the users table.
type Syncer struct {
	db       *gorm.DB
	log      logging.Logger
	password func() (string, error)
}

func NewSyncer(db *gorm.DB, log logging.Logger) *Syncer {
	return &Syncer{db: db, log: log.With("component", "user-sync"), password: placeholderPassword}
}

// placeholderPassword hashes random bytes so the column is filled with a value
// nobody can log in with.
func placeholderPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// bcrypt only reads the first 72 bytes of input; 32 raw bytes fit.
	hash, err := bcrypt.GenerateFromPassword(buf, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Upsert creates the user for p.ExternalID or refreshes its email, names and
// phone. Gender and password are only set on insert.
func (s *Syncer) Upsert(ctx context.Context, p Profile) (*models.User, error) {
	if p.ExternalID == "" {
		return nil, fmt.Errorf("upsert user: empty external id")
	}

	existing, err := FindByExternalID(ctx, s.db, p.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		err = s.db.WithContext(ctx).Model(existing).Updates(map[string]any{
			"email":      p.Email,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
			"phone":      p.Phone,
		}).Error
		if err != nil {
			return nil, fmt.Errorf("update user %s: %w", p.ExternalID, err)
		}
	} else if err := s.insert(ctx, p); err != nil {
		return nil, err
	}

	synced, err := FindByExternalID(ctx, s.db, p.ExternalID)
	if err != nil {
		return nil, err
	}
	if synced == nil {
		return nil, fmt.Errorf("upsert user %s: row missing after write", p.ExternalID)
	}

	s.log.Info(ctx, "user synced", "clerk_id", p.ExternalID, "user_id", synced.ID)
	return synced, nil
}

// insert hashes a placeholder password only for new rows. A concurrent insert
// for the same external id falls through to the conflict update.
func (s *Syncer) insert(ctx context.Context, p Profile) error {
	password, err := s.password()
	if err != nil {
		return fmt.Errorf("generate placeholder password: %w", err)
	}

	u := models.User{
		ClerkID:   p.ExternalID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Gender:    models.GenderMale,
		Password:  password,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "phone", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", p.ExternalID, err)
	}
	return nil
}
