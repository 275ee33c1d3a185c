package mw

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ActorHeader carries the id of the user performing a write. Authentication
// happens upstream.
const ActorHeader = "X-Actor-ID"

const actorKey = "actor_id"

// Actor copies the actor header into the request context.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(ActorHeader)); id != "" {
			c.Set(actorKey, id)
		}
		c.Next()
	}
}

// ActorID returns the actor set by Actor, or "".
func ActorID(c *gin.Context) string {
	return c.GetString(actorKey)
}
