package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/goventure/backend/controllers"
	"github.com/goventure/backend/database"
	"github.com/goventure/backend/utils"
)

const (
	testSecret = "test-secret"
	testTTL    = 7 * 24 * time.Hour
)

// setupRouter builds the full route surface over the in-memory store, the
// same wiring main uses minus CORS and logging.
func setupRouter(t *testing.T) (*gin.Engine, database.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := database.NewMemoryStore()
	r := gin.New()
	controllers.Mount(r, controllers.Deps{
		Store:    store,
		Secret:   testSecret,
		TokenTTL: testTTL,
		Uploader: utils.NewLocalUploader(t.TempDir()),
	})
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func userToken(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token, _ := decodeMap(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func seedAdmin(t *testing.T, store database.Store, email, password string) {
	t.Helper()
	require.NoError(t, utils.SeedAdminUser(context.Background(), store.Collection("users"), email, password))
}

func testCtx() context.Context { return context.Background() }

func listAll() database.ListQuery { return database.ListQuery{} }

func idHex(t *testing.T, v interface{}) string {
	t.Helper()
	switch id := v.(type) {
	case bson.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	t.Fatalf("unexpected id type %T", v)
	return ""
}

func legacyUserDoc(email, password string) bson.M {
	return bson.M{"email": email, "password": password, "role": "admin"}
}
