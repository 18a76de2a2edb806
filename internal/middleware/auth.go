package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/armline-api/internal/access"
	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/utils"
)

// Context keys set by the auth middlewares.
const (
	UserIDKey      = "userID"
	UserRoleKey    = "userRole"
	CurrentUserKey = "currentUser"
)

// UserLookup is the part of the store the guards read.
type UserLookup interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// AuthMiddleware reads a bearer access token when one is sent and puts its
// claims in the context. Requests without a valid token continue as visitors.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ValidateJWT(secret, tokenString, utils.PurposeAccess)
		if err != nil {
			_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			c.Next()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserRoleKey, claims.Role)
		c.Next()
	}
}

// RequireAccess lets the request through only when the signed-in user, read
// fresh from the store, satisfies level. Otherwise it answers with the guard's
// status and the login page to redirect to.
func RequireAccess(level access.Level, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := loadUser(c, users)
		d := access.Evaluate(level, user)
		if !d.Allowed {
			msg := "Please sign in to continue."
			if d.Status == http.StatusForbidden {
				msg = "You do not have access to this page."
			}
			c.AbortWithStatusJSON(d.Status, gin.H{"error": msg, "redirect": d.Redirect})
			return
		}
		if user != nil {
			c.Set(CurrentUserKey, user)
		}
		c.Next()
	}
}

func loadUser(c *gin.Context, users UserLookup) *models.User {
	if u, ok := c.Get(CurrentUserKey); ok {
		return u.(*models.User)
	}
	id, err := primitive.ObjectIDFromHex(c.GetString(UserIDKey))
	if err != nil {
		return nil
	}
	u, err := users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		return nil
	}
	return u
}

// CurrentUser returns the user stored by RequireAccess, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if u, ok := c.Get(CurrentUserKey); ok {
		return u.(*models.User)
	}
	return nil
}
