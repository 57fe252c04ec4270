package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrNotFound is returned when an id has no matching document. A malformed
// id can never match anything, so it maps to the same error.
var ErrNotFound = errors.New("not found")

// ListQuery carries the filter/sort/pagination of a list call. Filter is a
// flat equality-match document; Sort names a single field; Skip applies
// before Limit. A Limit of zero means no limit.
type ListQuery struct {
	Filter bson.M
	Sort   string
	Desc   bool
	Skip   int64
	Limit  int64
}

// Handle is a reusable reference to one schema-less collection. It delegates
// to the underlying store without validation; documents are loosely typed.
type Handle interface {
	List(ctx context.Context, q ListQuery) ([]bson.M, error)
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	FindByID(ctx context.Context, id string) (bson.M, error)
	InsertOne(ctx context.Context, doc bson.M) (bson.M, error)
	InsertMany(ctx context.Context, docs []bson.M) ([]bson.M, error)
	UpdateByID(ctx context.Context, id string, partial bson.M) (bson.M, error)
	DeleteByID(ctx context.Context, id string) error
}

// Store owns one database connection and hands out collection handles by
// name. Handles are memoized for the process lifetime: the same name always
// yields the same handle. The set of names is small and static in practice,
// so the map is never evicted.
type Store interface {
	Collection(name string) Handle
	Ping(ctx context.Context) error
	Name() string
	Close(ctx context.Context) error
}

// normalizeFilter aliases the public "id" field to "_id" and upgrades hex
// strings under "_id" to ObjectIDs so client-side filters match stored ids.
func normalizeFilter(filter bson.M) bson.M {
	if filter == nil {
		return bson.M{}
	}
	out := make(bson.M, len(filter))
	for k, v := range filter {
		if k == "id" {
			k = "_id"
		}
		if k == "_id" {
			if hex, ok := v.(string); ok {
				if oid, err := bson.ObjectIDFromHex(hex); err == nil {
					v = oid
				}
			}
		}
		out[k] = v
	}
	return out
}

func normalizeSortField(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}
