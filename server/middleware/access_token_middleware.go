package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const accessTokenKey = "genostore:access_token"

// AccessTokenMiddleware extracts the bearer token from the request so the
// handlers can run it through the authorization gate. Requests without a token
// proceed; whether one is required depends on the object being touched.
func AccessTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			c.Set(accessTokenKey, token)
		}
	}
}

func GetAccessToken(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}
