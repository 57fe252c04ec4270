package models

import "go.mongodb.org/mongo-driver/v2/bson"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the credential record kept in the "users" collection. Role is
// assigned at creation and never changed through the public API; email is
// stored trimmed and lowercased and is the only enforced uniqueness.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
}

// UserFromDoc maps a loosely typed users document onto a User. Legacy
// records may carry a plaintext "password" instead of "passwordHash"; the
// seeding routine migrates those in place, so here an un-migrated record
// just surfaces with an empty hash and fails verification.
func UserFromDoc(doc bson.M) User {
	u := User{
		Email:        docString(doc, "email"),
		PasswordHash: docString(doc, "passwordHash"),
		Role:         Role(docString(doc, "role")),
	}
	switch id := doc["_id"].(type) {
	case bson.ObjectID:
		u.ID = id.Hex()
	case string:
		u.ID = id
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return u
}

func docString(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}
