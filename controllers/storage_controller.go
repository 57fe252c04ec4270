package controllers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goventure/backend/utils"
)

type uploadDTO struct {
	Bucket   string `json:"bucket"`
	FilePath string `json:"filePath"`
	Base64   string `json:"base64"`
}

// Upload relays a base64 payload onto the configured storage backend.
// There is no content-type or size check here; the transport's body limit
// is the only bound.
func Upload(uploader utils.Uploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body uploadDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
			return
		}
		if body.Bucket == "" || body.FilePath == "" || body.Base64 == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
			return
		}

		bucket := utils.SanitizeBucket(body.Bucket)
		objectPath := utils.SanitizeObjectPath(body.FilePath)
		if bucket == "" || objectPath == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
			return
		}

		data, err := base64.StdEncoding.DecodeString(stripDataURL(body.Base64))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
			return
		}

		url, err := uploader.Save(ctx, bucket, objectPath, data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed", "message": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"ok": true, "path": bucket + "/" + objectPath, "url": url})
	}
}

// stripDataURL drops a "data:...;base64," prefix when a browser sends the
// whole data URL instead of the bare payload.
func stripDataURL(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 && strings.Contains(s[:i], "base64") {
		return s[i+1:]
	}
	return s
}
