package httpapi

import (
	"net/http"
	"time"

	"github.com/campusfeed/campusfeed/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIPrefix is where the user API is mounted.
const APIPrefix = "/api/v1/users"

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	api := r.Group(APIPrefix)

	// public
	api.POST("/register", s.register)
	api.POST("/verifyOtp", s.verifyOTP)
	api.POST("/resendOtp", s.resendOTP)
	api.POST("/login", s.login)
	api.POST("/refreshToken", s.refreshToken)

	auth := api.Group("")
	auth.Use(s.authenticate())
	{
		auth.POST("/logout", s.logout)
		auth.POST("/completeProfile", s.completeProfile)
		auth.POST("/changePassword", s.changePassword)
		auth.PATCH("/updateName", s.updateName)
		auth.PATCH("/updateBio", s.updateBio)
		auth.PATCH("/updateUserName", s.updateUsername)
		auth.PATCH("/updateHashtags", s.updateHashtags)
		auth.PATCH("/updateProfilePic", s.updateProfilePic)
		auth.PATCH("/updateDeviceToken", s.updateDeviceToken)
		auth.GET("/me", s.me)

		auth.POST("/createPost", s.requireCompleteProfile(), s.createPost)
		auth.GET("/showPosts", s.requireCompleteProfile(), s.showPosts)
		auth.DELETE("/deletePost/:id", s.deletePost)
		auth.POST("/likePost/:id", s.likePost)

		auth.GET("/notifications", s.listNotifications)
		auth.GET("/notifications/stream", s.streamNotifications)

		auth.GET("/:userId", s.publicProfile)
	}

	return r
}

// requestIDHeader carries the request id in both directions.
const requestIDHeader = "X-Request-ID"

// requestLogger tags the request context with a request id and logs one
// line per request through the server logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))

		c.Next()
		s.logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
