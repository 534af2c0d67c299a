package middleware

import (
	"context"
	"errors"
	"net/http"

	"menucms/internal/auth"
	"menucms/internal/docstore"

	"github.com/gin-gonic/gin"
)

// UserLookup loads the current state of a user. Roles and restaurant grants
// are read fresh on every request instead of trusting the token.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*auth.User, error)
}

func currentUser(c *gin.Context, users UserLookup) (*auth.User, bool) {
	user, err := users.GetUser(c.Request.Context(), c.GetString("userID"))
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
		c.Abort()
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		c.Abort()
		return nil, false
	}
	c.Set("userRole", user.Role)
	return user, true
}

// RequireRole lets the request through only for the given roles.
func RequireRole(users UserLookup, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, users)
		if !ok {
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		c.Abort()
	}
}

// RestaurantAccess guards routes with a :rid parameter. Without one, viewers
// get their allowed ids under "restaurantScope" so list handlers can filter.
func RestaurantAccess(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, users)
		if !ok {
			return
		}

		rid := c.Param("rid")
		if rid == "" {
			if !user.IsManager() {
				c.Set("restaurantScope", user.RestaurantIDs)
			}
			c.Next()
			return
		}

		if !user.CanAccess(rid) {
			c.JSON(http.StatusForbidden, gin.H{"error": "no access to this restaurant"})
			c.Abort()
			return
		}
		c.Next()
	}
}
