package api

import (
	"github.com/gin-gonic/gin"
)

// currentUserID pulls the authenticated user id set by the JWT middleware.
// NOTE: the context key is always 'userId' (lowercase 'd').
func currentUserID(ctx *gin.Context) (uint, bool) {
	v, exists := ctx.Get("userId")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
