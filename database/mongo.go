package database

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database

	mu      sync.Mutex
	handles map[string]Handle
}

// ConnectMongo opens a single client for the process and pings the primary
// so a bad URI fails here rather than on the first request.
func ConnectMongo(ctx context.Context, uri, dbName string) (Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &mongoStore{
		client:  client,
		db:      client.Database(dbName),
		handles: make(map[string]Handle),
	}, nil
}

// Open connects to MongoDB when a URI is configured, and otherwise (or when
// the connection fails) falls back to the in-memory store. The fallback is
// non-persistent across restarts; it exists so local development works
// without a running database.
func Open(ctx context.Context, uri, dbName string, log *logrus.Logger) Store {
	if uri == "" {
		log.Warn("MONGODB_URI not set, using in-memory store (data is not persisted)")
		return NewMemoryStore()
	}
	st, err := ConnectMongo(ctx, uri, dbName)
	if err != nil {
		log.WithError(err).Warn("mongo connection failed, using in-memory store (data is not persisted)")
		return NewMemoryStore()
	}
	log.Info("connected to MongoDB")
	return st
}

func (s *mongoStore) Collection(name string) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[name]; ok {
		return h
	}
	h := &mongoHandle{col: s.db.Collection(name)}
	s.handles[name] = h
	return h
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Name() string { return "mongo" }

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoHandle struct {
	col *mongo.Collection
}

func (h *mongoHandle) List(ctx context.Context, q ListQuery) ([]bson.M, error) {
	opts := options.Find()
	if q.Sort != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: normalizeSortField(q.Sort), Value: dir}})
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := h.col.Find(ctx, normalizeFilter(q.Filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]bson.M, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (h *mongoHandle) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	var doc bson.M
	err := h.col.FindOne(ctx, normalizeFilter(filter)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (h *mongoHandle) FindByID(ctx context.Context, id string) (bson.M, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return h.FindOne(ctx, bson.M{"_id": oid})
}

func (h *mongoHandle) InsertOne(ctx context.Context, doc bson.M) (bson.M, error) {
	out := withID(doc)
	if _, err := h.col.InsertOne(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *mongoHandle) InsertMany(ctx context.Context, docs []bson.M) ([]bson.M, error) {
	out := make([]bson.M, 0, len(docs))
	payload := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		d := withID(doc)
		out = append(out, d)
		payload = append(payload, d)
	}
	if _, err := h.col.InsertMany(ctx, payload); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *mongoHandle) UpdateByID(ctx context.Context, id string, partial bson.M) (bson.M, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated bson.M
	err = h.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": partial}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (h *mongoHandle) DeleteByID(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := h.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// withID copies the document and assigns a fresh ObjectID when the caller
// did not bring one, so created documents round-trip with their ids.
func withID(doc bson.M) bson.M {
	out := make(bson.M, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	if _, ok := out["_id"]; !ok {
		out["_id"] = bson.NewObjectID()
	}
	return out
}
