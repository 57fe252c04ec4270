package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goventure/backend/database"
)

func Health(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := store.Ping(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"ok":     true,
			"server": "goventure-backend",
			"mongo":  err == nil && store.Name() == "mongo",
			"store":  store.Name(),
		})
	}
}
