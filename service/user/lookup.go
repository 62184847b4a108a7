package user

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/models"
	"github.com/KAsare1/Dentora-server/cmd/utils"
	"github.com/KAsare1/Dentora-server/db"
)

// FindByExternalID loads the local user for an identity-provider id. It
// returns (nil, nil) when the user has not been synced yet.
func FindByExternalID(ctx context.Context, gdb *gorm.DB, externalID string) (*models.User, error) {
	var u models.User
	err := gdb.WithContext(ctx).Where("clerk_id = ?", externalID).First(&u).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user %s: %w", externalID, err)
	}
	return &u, nil
}

// Current resolves the caller from the request context. A nil user with a nil
// error means the caller is anonymous or not synced.
func Current(ctx context.Context, gdb *gorm.DB) (*models.User, error) {
	externalID, ok := utils.ExternalIDFromContext(ctx)
	if !ok {
		return nil, nil
	}
	return FindByExternalID(ctx, gdb, externalID)
}
