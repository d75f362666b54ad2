package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"freight/internal/domain"
)

const (
	userIDHeader    = "X-User-ID"
	userRolesHeader = "X-User-Roles"

	actorContextKey = "actor"
)

// ActorMiddleware resolves the acting user from the authentication
// headers set by the edge proxy and stores it in the request context.
// Requests without an identity are rejected; every operation in the
// core requires an explicit actor.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}

		var roles []domain.Role
		for _, r := range strings.Split(c.GetHeader(userRolesHeader), ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, domain.Role(strings.ToUpper(r)))
			}
		}

		c.Set(actorContextKey, domain.Actor{UserID: userID, Roles: roles})
		c.Next()
	}
}

// ActorFrom returns the actor resolved for this request. It is the
// zero Actor when ActorMiddleware did not run.
func ActorFrom(c *gin.Context) domain.Actor {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return domain.Actor{}
	}
	actor, _ := v.(domain.Actor)
	return actor
}
