package utils

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/goventure/backend/database"
	"github.com/goventure/backend/models"
)

// SeedAdminUser makes sure the configured admin account exists. It runs at
// every boot and is idempotent: an existing record is left alone, except
// for legacy records that still carry a plaintext "password" field, which
// are migrated to a bcrypt hash in place so the admin can actually log in.
func SeedAdminUser(ctx context.Context, users database.Handle, email, password string) error {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return fmt.Errorf("missing ADMIN_EMAIL or ADMIN_PASSWORD")
	}

	existing, err := users.FindOne(ctx, bson.M{"email": email})
	if err == nil {
		plain, _ := existing["password"].(string)
		hash, _ := existing["passwordHash"].(string)
		if hash != "" || plain == "" {
			return nil
		}
		migrated, err := HashPassword(plain)
		if err != nil {
			return fmt.Errorf("hash legacy admin password: %w", err)
		}
		id, ok := existing["_id"].(bson.ObjectID)
		if !ok {
			return fmt.Errorf("legacy admin record has no object id")
		}
		_, err = users.UpdateByID(ctx, id.Hex(), bson.M{
			"passwordHash": migrated,
			"role":         string(models.RoleAdmin),
			"updatedAt":    Now(),
		})
		if err != nil {
			return fmt.Errorf("migrate legacy admin: %w", err)
		}
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	now := Now()
	_, err = users.InsertOne(ctx, bson.M{
		"email":        email,
		"passwordHash": hash,
		"role":         string(models.RoleAdmin),
		"createdAt":    now,
		"updatedAt":    now,
	})
	if err != nil {
		return fmt.Errorf("seed admin insert failed: %w", err)
	}
	return nil
}
