// Package afptest runs an in-process fake AFP API for tests.
package afptest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// BasePath is the API prefix served by the fake server.
const BasePath = "/afp-api/latest"

// Server describes the data returned by the fake API.
type Server struct {
	// User and Password are required via basic auth.
	User     string
	Password string
	// Accounts is returned by GET /account.
	Accounts map[string][]string
	// Credentials maps "account/role" to the JSON credentials document.
	Credentials map[string]gin.H
	// AccountStatus, when non-zero, replaces the /account response with this status.
	AccountStatus int
}

// Start serves s on a local listener and returns the API base URL.
// The listener is closed when the test finishes.
func (s *Server) Start(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	api := router.Group(BasePath, gin.BasicAuth(gin.Accounts{s.User: s.Password}))
	api.GET("/account", func(c *gin.Context) {
		if s.AccountStatus != 0 {
			c.JSON(s.AccountStatus, gin.H{"error": http.StatusText(s.AccountStatus)})
			return
		}
		c.JSON(http.StatusOK, s.Accounts)
	})
	api.GET("/account/:account/:role", func(c *gin.Context) {
		creds, ok := s.Credentials[c.Param("account")+"/"+c.Param("role")]
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
		c.JSON(http.StatusOK, creds)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL + BasePath
}
