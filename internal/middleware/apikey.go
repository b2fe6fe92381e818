package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAPIKey rejects requests whose header does not carry one of keys.
// Several keys may be active at once so the shared secret can be rotated
// without downtime. The check runs before the body is read.
func RequireAPIKey(header string, keys []string) gin.HandlerFunc {
	accepted := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			accepted = append(accepted, []byte(k))
		}
	}

	return func(c *gin.Context) {
		presented := []byte(c.GetHeader(header))
		if len(presented) == 0 || !matchesAny(presented, accepted) {
			abort(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

func matchesAny(presented []byte, accepted [][]byte) bool {
	match := 0
	for _, k := range accepted {
		match |= subtle.ConstantTimeCompare(presented, k)
	}
	return match == 1
}
