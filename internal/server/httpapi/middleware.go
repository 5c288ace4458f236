package httpapi

import (
	"strings"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/gin-gonic/gin"
)

const (
	identityKey       = "identity"
	accessTokenCookie = "accessToken"
)

// bearerToken extracts the access token from the Authorization header,
// falling back to the accessToken cookie.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader(common.AuthorizationHeaderName); h != "" {
		if token, ok := strings.CutPrefix(h, common.BearerPrefix); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if v, err := c.Cookie(accessTokenCookie); err == nil {
		return v
	}
	return ""
}

// authenticate resolves the caller and stores the identity in the context.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.deps.Gate.Authorize(c.Request.Context(), bearerToken(c))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// requireCompleteProfile must run after authenticate.
func (s *Server) requireCompleteProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.deps.Gate.RequireCompleteProfile(identity(c)); err != nil {
			s.writeError(c, err)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) *models.PublicUser {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.PublicUser)
	return u
}

// callerID is the id of the authenticated caller.
func callerID(c *gin.Context) string {
	if u := identity(c); u != nil {
		return u.ID
	}
	return ""
}
