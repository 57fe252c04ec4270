package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// memStore keeps every collection in process memory. It backs local
// development when no MongoDB is reachable and doubles as the store used by
// package tests. Without a sort, List returns documents in insertion order.
type memStore struct {
	mu      sync.Mutex
	handles map[string]*memHandle
}

func NewMemoryStore() Store {
	return &memStore{handles: make(map[string]*memHandle)}
}

func (s *memStore) Collection(name string) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[name]; ok {
		return h
	}
	h := &memHandle{}
	s.handles[name] = h
	return h
}

func (s *memStore) Ping(ctx context.Context) error { return nil }

func (s *memStore) Name() string { return "memory" }

func (s *memStore) Close(ctx context.Context) error { return nil }

type memHandle struct {
	mu   sync.RWMutex
	docs []bson.M
}

func (h *memHandle) List(ctx context.Context, q ListQuery) ([]bson.M, error) {
	filter := normalizeFilter(q.Filter)

	h.mu.RLock()
	matched := make([]bson.M, 0)
	for _, doc := range h.docs {
		if matchesFilter(doc, filter) {
			matched = append(matched, cloneDoc(doc))
		}
	}
	h.mu.RUnlock()

	if q.Sort != "" {
		field := normalizeSortField(q.Sort)
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i][field], matched[j][field])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Skip > 0 {
		if q.Skip >= int64(len(matched)) {
			return []bson.M{}, nil
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(matched)) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (h *memHandle) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	filter = normalizeFilter(filter)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, doc := range h.docs {
		if matchesFilter(doc, filter) {
			return cloneDoc(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (h *memHandle) FindByID(ctx context.Context, id string) (bson.M, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return h.FindOne(ctx, bson.M{"_id": oid})
}

func (h *memHandle) InsertOne(ctx context.Context, doc bson.M) (bson.M, error) {
	out := withID(doc)
	h.mu.Lock()
	h.docs = append(h.docs, cloneDoc(out))
	h.mu.Unlock()
	return out, nil
}

func (h *memHandle) InsertMany(ctx context.Context, docs []bson.M) ([]bson.M, error) {
	out := make([]bson.M, 0, len(docs))
	h.mu.Lock()
	for _, doc := range docs {
		d := withID(doc)
		h.docs = append(h.docs, cloneDoc(d))
		out = append(out, d)
	}
	h.mu.Unlock()
	return out, nil
}

func (h *memHandle) UpdateByID(ctx context.Context, id string, partial bson.M) (bson.M, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, doc := range h.docs {
		if looseEq(doc["_id"], oid) {
			for k, v := range partial {
				if k == "_id" {
					continue
				}
				doc[k] = v
			}
			h.docs[i] = doc
			return cloneDoc(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (h *memHandle) DeleteByID(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, doc := range h.docs {
		if looseEq(doc["_id"], oid) {
			h.docs = append(h.docs[:i], h.docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func matchesFilter(doc, filter bson.M) bool {
	for k, want := range filter {
		if !looseEq(doc[k], want) {
			return false
		}
	}
	return true
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// looseEq compares values the way a JSON round-trip would see them:
// ObjectIDs match their hex form and numbers compare across int/float.
func looseEq(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if oid, ok := a.(bson.ObjectID); ok {
		a = oid.Hex()
	}
	if oid, ok := b.(bson.ObjectID); ok {
		b = oid.Hex()
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compareValues orders mixed-type field values: nil first, then numbers,
// then everything else by string form. Good enough for single-field sorts
// over loosely typed documents.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if oid, ok := a.(bson.ObjectID); ok {
		a = oid.Hex()
	}
	if oid, ok := b.(bson.ObjectID); ok {
		b = oid.Hex()
	}
	sa, sb := toSortString(a), toSortString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func toSortString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
