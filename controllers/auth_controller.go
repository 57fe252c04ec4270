package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/goventure/backend/database"
	"github.com/goventure/backend/models"
	"github.com/goventure/backend/utils"
)

type credentialsDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Register(store database.Store, secret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		users := store.Collection("users")

		var body credentialsDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
			return
		}

		email := utils.NormalizeEmail(body.Email)
		if email == "" || body.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
			return
		}
		if len(body.Password) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password_too_short"})
			return
		}

		_, err := users.FindOne(ctx, bson.M{"email": email})
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "email_exists"})
			return
		}
		if !errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
			return
		}

		hash, err := utils.HashPassword(body.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
			return
		}

		now := utils.Now()
		created, err := users.InsertOne(ctx, bson.M{
			"email":        email,
			"passwordHash": hash,
			"role":         string(models.RoleUser),
			"createdAt":    now,
			"updatedAt":    now,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
			return
		}

		user := models.UserFromDoc(created)
		token, err := utils.GenerateToken(user.ID, user.Email, string(user.Role), secret, ttl)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"token": token, "role": user.Role, "email": user.Email})
	}
}

func Login(store database.Store, secret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		users := store.Collection("users")

		var body credentialsDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}

		email := utils.NormalizeEmail(body.Email)
		doc, err := users.FindOne(ctx, bson.M{"email": email})
		if err != nil {
			// Same response as a hash mismatch so the endpoint does not
			// leak which emails are registered.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}

		user := models.UserFromDoc(doc)
		if user.PasswordHash == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		if err := utils.CheckPassword(user.PasswordHash, body.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}

		token, err := utils.GenerateToken(user.ID, user.Email, string(user.Role), secret, ttl)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "role": user.Role, "email": user.Email})
	}
}

// Me answers with the user's current email and role, re-read from the
// store rather than echoed from token claims, so a deleted account is
// reported as gone even while its token is still within the 7-day window.
func Me(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		users := store.Collection("users")

		doc, err := users.FindByID(ctx, c.GetString("userID"))
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "me_failed"})
			return
		}

		user := models.UserFromDoc(doc)
		c.JSON(http.StatusOK, gin.H{"email": user.Email, "role": user.Role})
	}
}
