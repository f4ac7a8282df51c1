package middleware

import (
	"net/http"

	"crosspoll/internal/models"
	"crosspoll/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

// LoadIdentity resolves the session to a User and sets it on the context. On
// first contact it mints an anonymous identity (nil email) so later votes and
// polls attach to a stable user id once the session signs in.
func LoadIdentity(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		if id, ok := session.Get("user_id").(uint); ok {
			if user, err := st.GetUser(id); err == nil {
				c.Set(IdentityKey, user)
				c.Next()
				return
			}
		}

		user, err := st.CreateUser(nil, nil)
		if err != nil {
			// Reads still work without an identity; writes will be
			// rejected by AuthRequired.
			c.Next()
			return
		}
		session.Set("user_id", user.ID)
		session.Save()

		c.Set(IdentityKey, user)
		c.Next()
	}
}

// AuthRequired rejects anonymous and missing identities. Anonymous sessions
// may read but not write.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"kind":  "authentication_required",
				"error": "sign in to continue",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the identity set by LoadIdentity, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, exists := c.Get(IdentityKey); exists {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
