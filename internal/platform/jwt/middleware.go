package jwtmw

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	httpdto "stock_alerts/internal/platform/http/dto"
)

// ContextUserID is the gin context key holding the authenticated uint user id.
const ContextUserID = "userID"

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// AuthRequired rejects requests without a valid bearer token and stores the
// token's user id under ContextUserID.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "missing bearer token"})
			return
		}

		// シークレット未設定はサーバー側の設定ミス
		secret := os.Getenv(EnvKeyJWTSecret)
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "server misconfigured"})
			return
		}

		userID, err := ParseUserID(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid token"})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// RequireUsers は AuthRequired の後段で使い、ids に含まれるユーザーだけを通します。
// ids が空の場合は全てのリクエストを 403 にします。
func RequireUsers(ids []uint) gin.HandlerFunc {
	allowed := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetUint(ContextUserID)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, httpdto.ErrorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}
