package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/harvestpay/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Actor identity headers and limits. Every mutating payment operation
// records who performed it; the gateway in front of this service resolves
// authentication and forwards the operator identity in X-Actor-ID.
const (
	// ActorHeader carries the acting operator's identity.
	ActorHeader = "X-Actor-ID"
	// ActorContextKey is the gin context key the actor is stored under.
	ActorContextKey = "actor"
	// MaxActorLength bounds header-supplied identities.
	MaxActorLength = 100
)

// ActorExtraction reads the actor identity from the request header and
// stores it in the gin context and the request context, so handlers,
// application services and log lines all see the same identity.
func ActorExtraction(baseLogger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(ActorHeader)
		if len(actor) > MaxActorLength {
			actor = actor[:MaxActorLength]
		}
		if actor != "" {
			c.Set(ActorContextKey, actor)
			ctx, _ := logger.WithActorID(c.Request.Context(), baseLogger, actor)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// GetActor returns the acting operator's identity, or empty when the
// request carried none. Handlers for mutating operations reject empty
// actors.
func GetActor(c *gin.Context) string {
	if actor, exists := c.Get(ActorContextKey); exists {
		if a, ok := actor.(string); ok {
			return a
		}
	}
	return ""
}
