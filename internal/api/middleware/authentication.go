package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/app"
	"github.com/cozy-creator/influencer-studio/internal/services/auth"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

const IdentityKey = "identity"

// AuthenticationMiddleware resolves the bearer token to an identity and
// stores it on the gin and request contexts.
func AuthenticationMiddleware(ctx *gin.Context) {
	app := ctx.MustGet("app").(*app.App)

	verifier := app.Verifier()
	if verifier == nil {
		app.Logger.Error("no token verifier configured")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication is not configured"})
		return
	}

	token := auth.BearerToken(ctx.GetHeader("Authorization"))
	if _, static := verifier.(auth.StaticVerifier); token == "" && !static {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized access"})
		return
	}

	identity, err := verifier.Verify(ctx.Request.Context(), token)
	if err != nil {
		if errors.Is(err, types.ErrUnauthorized) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "The provided token is invalid"})
			return
		}
		app.Logger.Error("token verification failed", zap.Error(err))
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to verify token"})
		return
	}

	ctx.Set(IdentityKey, identity)
	ctx.Request = ctx.Request.WithContext(auth.WithIdentity(ctx.Request.Context(), identity))
	ctx.Next()
}

func RequireAdmin(ctx *gin.Context) {
	identity, ok := auth.FromContext(ctx.Request.Context())
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized access"})
		return
	}
	if !identity.IsAdmin() {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}

	ctx.Next()
}
