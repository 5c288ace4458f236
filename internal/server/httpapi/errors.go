package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const internalErrorMessage = "internal error"

// statusMap is checked in order; the first sentinel err wraps decides.
var statusMap = []struct {
	err    error
	status int
}{
	{common.ErrValidation, http.StatusBadRequest},
	{common.ErrInvalidOrExpiredOTP, http.StatusBadRequest},
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrMissingToken, http.StatusUnauthorized},
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrRefreshTokenExpired, http.StatusUnauthorized},
	{common.ErrUnverified, http.StatusUnauthorized},
	{common.ErrForbidden, http.StatusForbidden},
	{common.ErrIncompleteProfile, http.StatusForbidden},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrConflict, http.StatusConflict},
}

// statusFor maps err to an HTTP status and the message shown to clients.
// Unclassified errors become a bare 500 so internals never leak.
func statusFor(err error) (int, string) {
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			return m.status, clientMessage(err, m.err)
		}
	}
	return http.StatusInternalServerError, internalErrorMessage
}

// clientMessage drops the sentinel prefix services put in front of the
// human-readable detail.
func clientMessage(err, sentinel error) string {
	msg := err.Error()
	if detail, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok && detail != "" {
		return detail
	}
	return msg
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msg})
}

// bindJSON decodes the body into req and runs its binding rules. On failure
// it writes a 400 and returns false.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, bindMessage(err))
		return false
	}
	return true
}

// bindMessage describes the first failed binding rule.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "invalid email format"
	case "eqfield":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	case "len", "numeric":
		return fmt.Sprintf("%s must be a %d digit code", fe.Field(), common.OTPLength)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
