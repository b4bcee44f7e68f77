// Package middleware provides HTTP middleware for the rr-zoned API: basic
// authentication against the directory and request logging.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-zoned/internal/api/models"
	"github.com/haukened/rr-zoned/internal/dns/gateways/directory"
)

// UserKey is the context key holding the authenticated login.
const UserKey = "user"

// BasicAuth requires HTTP basic credentials accepted by checker and stores
// the login under UserKey. Rejections answer 401 with a WWW-Authenticate
// challenge for realm.
func BasicAuth(checker directory.CredentialChecker, realm string) gin.HandlerFunc {
	challenge := fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm)
	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		if !ok || user == "" || !checker.CheckCredentials(user, password) {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Status:   http.StatusUnauthorized,
				Severity: "warning",
				Message:  "Authentication required.",
			})
			return
		}
		c.Set(UserKey, user)
		c.Next()
	}
}
