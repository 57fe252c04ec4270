package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goventure/backend/database"
	"github.com/goventure/backend/middleware"
	"github.com/goventure/backend/utils"
)

// Deps bundles what the handlers need; main builds it once at startup and
// tests build it around the in-memory store.
type Deps struct {
	Store    database.Store
	Secret   string
	TokenTTL time.Duration
	Uploader utils.Uploader
}

// Mount registers the whole HTTP surface on the router.
func Mount(r *gin.Engine, d Deps) {
	r.GET("/health", Health(d.Store))

	auth := r.Group("/auth")
	{
		auth.POST("/register", Register(d.Store, d.Secret, d.TokenTTL))
		auth.POST("/login", Login(d.Store, d.Secret, d.TokenTTL))
		auth.GET("/me", middleware.AuthMiddleware(d.Secret), Me(d.Store))
	}

	api := r.Group("/api")
	{
		api.GET("/:collection", ListDocuments(d.Store))
		api.GET("/:collection/:id", GetDocument(d.Store))
		api.POST("/:collection", CreateDocuments(d.Store, d.Secret))
		api.PUT("/:collection/:id", middleware.AuthMiddleware(d.Secret), UpdateDocument(d.Store))
		api.DELETE("/:collection/:id", middleware.AuthMiddleware(d.Secret), DeleteDocument(d.Store))
	}

	r.POST("/storage/upload", Upload(d.Uploader))
}
