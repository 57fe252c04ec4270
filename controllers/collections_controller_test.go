package controllers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequiresTokenExceptContactSubmissions(t *testing.T) {
	r, store := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/destinations", "", map[string]string{"name": "Bali"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing_token", decodeMap(t, w)["error"])

	// Nothing was created by the rejected call.
	docs, err := store.Collection("destinations").List(testCtx(), listAll())
	require.NoError(t, err)
	assert.Empty(t, docs)

	w = doJSON(t, r, http.MethodPost, "/api/destinations", "garbage-token", map[string]string{"name": "Bali"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_token", decodeMap(t, w)["error"])

	// The public contact funnel takes no token at all.
	w = doJSON(t, r, http.MethodPost, "/api/contact_submissions", "", map[string]string{
		"name":    "Alice",
		"message": "Trip to Bali?",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	token := userToken(t, r, "alice@test.com", "secret1")
	w = doJSON(t, r, http.MethodPost, "/api/destinations", token, map[string]string{"name": "Bali"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeMap(t, w)
	assert.NotEmpty(t, created["_id"])
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	r, _ := setupRouter(t)
	token := userToken(t, r, "alice@test.com", "secret1")

	w := doJSON(t, r, http.MethodPost, "/api/trips", token, map[string]interface{}{
		"title": "Island Hop",
		"price": 1299.5,
		"tags":  []string{"beach", "summer"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeMap(t, w)
	id, _ := created["_id"].(string)
	require.NotEmpty(t, id)
	assert.NotEmpty(t, created["created_at"])
	assert.NotEmpty(t, created["updated_at"])

	w = doJSON(t, r, http.MethodGet, "/api/trips/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeMap(t, w)
	assert.Equal(t, "Island Hop", got["title"])
	assert.Equal(t, 1299.5, got["price"])
	assert.Equal(t, []interface{}{"beach", "summer"}, got["tags"])
}

func TestBatchCreate(t *testing.T) {
	r, _ := setupRouter(t)
	token := userToken(t, r, "alice@test.com", "secret1")

	w := doJSON(t, r, http.MethodPost, "/api/blogs", token, []map[string]interface{}{
		{"title": "First"},
		{"title": "Second"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeList(t, w)
	require.Len(t, created, 2)
	assert.NotEmpty(t, created[0]["_id"])
	assert.NotEmpty(t, created[1]["_id"])
	assert.NotEqual(t, created[0]["_id"], created[1]["_id"])
}

func TestListFilterSortPagination(t *testing.T) {
	r, _ := setupRouter(t)
	token := userToken(t, r, "alice@test.com", "secret1")

	for _, d := range []map[string]interface{}{
		{"name": "Bali", "region": "asia", "rank": 2},
		{"name": "Kyoto", "region": "asia", "rank": 1},
		{"name": "Lisbon", "region": "europe", "rank": 3},
	} {
		w := doJSON(t, r, http.MethodPost, "/api/destinations", token, d)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	filter := url.QueryEscape(`{"region":"asia"}`)
	w := doJSON(t, r, http.MethodGet, "/api/destinations?filter="+filter+"&sort=rank&order=asc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := decodeList(t, w)
	require.Len(t, docs, 2)
	assert.Equal(t, "Kyoto", docs[0]["name"])
	assert.Equal(t, "Bali", docs[1]["name"])

	// Default order is descending when a sort field is given.
	w = doJSON(t, r, http.MethodGet, "/api/destinations?sort=rank", "", nil)
	docs = decodeList(t, w)
	require.Len(t, docs, 3)
	assert.Equal(t, "Lisbon", docs[0]["name"])

	w = doJSON(t, r, http.MethodGet, "/api/destinations?sort=rank&order=asc&skip=1&limit=1", "", nil)
	docs = decodeList(t, w)
	require.Len(t, docs, 1)
	assert.Equal(t, "Bali", docs[0]["name"])
}

func TestListIdempotentAndEmpty(t *testing.T) {
	r, _ := setupRouter(t)
	token := userToken(t, r, "alice@test.com", "secret1")

	for _, name := range []string{"a", "b", "c"} {
		w := doJSON(t, r, http.MethodPost, "/api/testimonials", token, map[string]string{"author": name})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	first := doJSON(t, r, http.MethodGet, "/api/testimonials?sort=author&order=asc", "", nil)
	second := doJSON(t, r, http.MethodGet, "/api/testimonials?sort=author&order=asc", "", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// No matches is an empty array, not an error.
	w := doJSON(t, r, http.MethodGet, "/api/never_used?filter="+url.QueryEscape(`{"x":1}`), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestListMalformedFilterDegrades(t *testing.T) {
	r, _ := setupRouter(t)
	token := userToken(t, r, "alice@test.com", "secret1")

	w := doJSON(t, r, http.MethodPost, "/api/reviews", token, map[string]string{"text": "great"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/reviews?filter="+url.QueryEscape("{not json"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)
}

func TestGetUnknownAndMalformedID(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/trips/aaaaaaaaaaaaaaaaaaaaaaaa", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeMap(t, w)["error"])

	w = doJSON(t, r, http.MethodGet, "/api/trips/not-a-hex-id", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeMap(t, w)["error"])
}

func TestUpdateMergesAndRefreshesTimestamp(t *testing.T) {
	r, _ := setupRouter(t)
	token := userToken(t, r, "alice@test.com", "secret1")

	w := doJSON(t, r, http.MethodPost, "/api/trips", token, map[string]interface{}{
		"title": "Old Title",
		"price": 100,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeMap(t, w)
	id := created["_id"].(string)

	w = doJSON(t, r, http.MethodPut, "/api/trips/"+id, token, map[string]interface{}{"title": "New Title"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeMap(t, w)
	assert.Equal(t, "New Title", updated["title"])
	assert.Equal(t, float64(100), updated["price"])
	assert.Equal(t, created["created_at"], updated["created_at"])

	// Update without a token is rejected.
	w = doJSON(t, r, http.MethodPut, "/api/trips/"+id, "", map[string]interface{}{"title": "Sneaky"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown id is a 404.
	w = doJSON(t, r, http.MethodPut, "/api/trips/aaaaaaaaaaaaaaaaaaaaaaaa", token, map[string]interface{}{"title": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteThenGet(t *testing.T) {
	r, _ := setupRouter(t)
	token := userToken(t, r, "alice@test.com", "secret1")

	w := doJSON(t, r, http.MethodPost, "/api/client_photos", token, map[string]string{"url": "/uploads/p/1.jpg"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeMap(t, w)["_id"].(string)

	w = doJSON(t, r, http.MethodDelete, "/api/client_photos/"+id, "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/client_photos/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeMap(t, w)["ok"])

	w = doJSON(t, r, http.MethodGet, "/api/client_photos/"+id, "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/client_photos/"+id, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationsDefaultUnread(t *testing.T) {
	r, _ := setupRouter(t)
	token := userToken(t, r, "alice@test.com", "secret1")

	w := doJSON(t, r, http.MethodPost, "/api/notifications", token, map[string]interface{}{
		"type":    "booking",
		"message": "New inquiry",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, false, decodeMap(t, w)["read"])

	// An explicit read flag is preserved.
	w = doJSON(t, r, http.MethodPost, "/api/notifications", token, map[string]interface{}{
		"type": "booking",
		"read": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decodeMap(t, w)["read"])
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeMap(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "goventure-backend", body["server"])
	assert.Equal(t, false, body["mongo"])
	assert.Equal(t, "memory", body["store"])
}
