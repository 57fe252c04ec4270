package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/goventure/backend/database"
	"github.com/goventure/backend/utils"
)

// publicCollections can be written to without a token. Only the contact
// form funnel qualifies; everything else requires a session.
var publicCollections = map[string]bool{
	"contact_submissions": true,
}

func ListDocuments(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		col := store.Collection(c.Param("collection"))

		q := database.ListQuery{
			Sort:  c.Query("sort"),
			Desc:  strings.ToLower(c.DefaultQuery("order", "desc")) != "asc",
			Skip:  int64(utils.ParseIntDefault(c.Query("skip"), 0)),
			Limit: int64(utils.ParseIntDefault(c.Query("limit"), 0)),
		}
		if raw := c.Query("filter"); raw != "" {
			var filter bson.M
			// Malformed filter JSON degrades to no filter; existing clients
			// rely on that instead of a 400.
			if err := json.Unmarshal([]byte(raw), &filter); err == nil {
				q.Filter = filter
			}
		}

		docs, err := col.List(ctx, q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

func GetDocument(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		col := store.Collection(c.Param("collection"))

		doc, err := col.FindByID(ctx, c.Param("id"))
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get_failed", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// CreateDocuments accepts a single document or an array of documents. The
// server assigns ids and timestamps; callers only bring payload fields.
func CreateDocuments(store database.Store, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		collection := c.Param("collection")

		if !publicCollections[collection] {
			token := utils.BearerToken(c)
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
				return
			}
			if _, err := utils.ValidateToken(token, secret); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
				return
			}
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed", "message": err.Error()})
			return
		}

		col := store.Collection(collection)
		if isJSONArray(body) {
			var docs []bson.M
			if err := json.Unmarshal(body, &docs); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "create_failed", "message": err.Error()})
				return
			}
			for i := range docs {
				docs[i] = stampNew(collection, docs[i])
			}
			created, err := col.InsertMany(ctx, docs)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed", "message": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, created)
			return
		}

		var doc bson.M
		if err := json.Unmarshal(body, &doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "create_failed", "message": err.Error()})
			return
		}
		created, err := col.InsertOne(ctx, stampNew(collection, doc))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed", "message": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func UpdateDocument(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		col := store.Collection(c.Param("collection"))

		var partial bson.M
		if err := c.ShouldBindJSON(&partial); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "update_failed", "message": err.Error()})
			return
		}
		delete(partial, "_id")
		delete(partial, "id")
		delete(partial, "created_at")
		partial["updated_at"] = utils.Now()

		updated, err := col.UpdateByID(ctx, c.Param("id"), partial)
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func DeleteDocument(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		col := store.Collection(c.Param("collection"))

		err := col.DeleteByID(ctx, c.Param("id"))
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// stampNew applies the store-assigned fields on a fresh document. The id
// itself is assigned one layer down. Notifications default to unread.
func stampNew(collection string, doc bson.M) bson.M {
	if doc == nil {
		doc = bson.M{}
	}
	now := utils.Now()
	doc["created_at"] = now
	doc["updated_at"] = now
	if collection == "notifications" {
		if _, ok := doc["read"]; !ok {
			doc["read"] = false
		}
	}
	return doc
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
