package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campusfeed/campusfeed/internal/filex"
	"github.com/campusfeed/campusfeed/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const profilePicField = "ProfilePic"

type registerRequest struct {
	Username string `json:"Username" binding:"required"`
	Email    string `json:"Email" binding:"required,email"`
	Password string `json:"Password" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := s.deps.Accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully. Please verify OTP.", "user": user})
}

type verifyOTPRequest struct {
	Email string `json:"Email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// verifyOTP redeems a code for the email it was sent to.
func (s *Server) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := s.deps.OTP.Verify(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP verified successfully", "accessToken": pair.AccessToken, "refreshToken": pair.RefreshToken})
}

type emailRequest struct {
	Email string `json:"Email" binding:"required,email"`
}

func (s *Server) resendOTP(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.deps.OTP.Resend(c.Request.Context(), req.Email); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email"})
}

type loginRequest struct {
	Email    string `json:"Email" binding:"required,email"`
	Password string `json:"Password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := s.deps.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "Login successful",
		"accessToken":       res.AccessToken,
		"refreshToken":      res.RefreshToken,
		"isProfileComplete": res.IsProfileComplete,
		"user":              res.User,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (s *Server) refreshToken(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := s.deps.Accounts.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token refreshed", "accessToken": pair.AccessToken, "refreshToken": pair.RefreshToken})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.deps.Accounts.InvalidateSession(c.Request.Context(), callerID(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User logged out successfully"})
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=NewPassword"`
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := s.deps.Accounts.ChangePassword(c.Request.Context(), callerID(c), req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully, please log in again"})
}

// completeProfile takes a multipart form: Name, Bio, Hashtags and an
// optional ProfilePic file.
func (s *Server) completeProfile(c *gin.Context) {
	pic, err := s.stageUpload(c, profilePicField)
	if err != nil {
		s.writeError(c, err)
		return
	}

	user, err := s.deps.Accounts.CompleteProfile(c.Request.Context(), callerID(c), services.ProfileInput{
		Name:     c.PostForm("Name"),
		Bio:      c.PostForm("Bio"),
		Hashtags: formList(c, "Hashtags"),
		PicPath:  pic,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile completed successfully", "user": user})
}

type nameRequest struct {
	Name string `json:"Name" binding:"required"`
}

func (s *Server) updateName(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.deps.Accounts.UpdateName(c.Request.Context(), callerID(c), req.Name)
	s.respondUser(c, "Name updated successfully", user, err)
}

type bioRequest struct {
	Bio string `json:"Bio" binding:"required"`
}

func (s *Server) updateBio(c *gin.Context) {
	var req bioRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.deps.Accounts.UpdateBio(c.Request.Context(), callerID(c), req.Bio)
	s.respondUser(c, "Bio updated successfully", user, err)
}

type usernameRequest struct {
	Username string `json:"Username" binding:"required"`
}

func (s *Server) updateUsername(c *gin.Context) {
	var req usernameRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.deps.Accounts.UpdateUsername(c.Request.Context(), callerID(c), req.Username)
	s.respondUser(c, "Username updated successfully", user, err)
}

type hashtagsRequest struct {
	Hashtags []string `json:"Hashtags" binding:"required,min=1"`
}

func (s *Server) updateHashtags(c *gin.Context) {
	var req hashtagsRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.deps.Accounts.UpdateHashtags(c.Request.Context(), callerID(c), req.Hashtags)
	s.respondUser(c, "Hashtags updated successfully", user, err)
}

func (s *Server) updateProfilePic(c *gin.Context) {
	pic, err := s.stageUpload(c, profilePicField)
	if err != nil {
		s.writeError(c, err)
		return
	}
	user, err := s.deps.Accounts.UpdateProfilePic(c.Request.Context(), callerID(c), pic)
	s.respondUser(c, "Profile picture updated successfully", user, err)
}

type deviceTokenRequest struct {
	DeviceToken string `json:"deviceToken" binding:"required"`
}

func (s *Server) updateDeviceToken(c *gin.Context) {
	var req deviceTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.deps.Accounts.UpdateDeviceToken(c.Request.Context(), callerID(c), req.DeviceToken)
	s.respondUser(c, "Device token updated successfully", user, err)
}

func (s *Server) me(c *gin.Context) {
	user, err := s.deps.Accounts.GetProfile(c.Request.Context(), callerID(c))
	s.respondUser(c, "ok", user, err)
}

func (s *Server) publicProfile(c *gin.Context) {
	id, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	profile, err := s.deps.Accounts.GetPublicProfile(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok", "user": profile})
}

func (s *Server) respondUser(c *gin.Context, msg string, user any, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "user": user})
}

// stageUpload copies the multipart file in field into the upload directory
// and returns its path, or "" when the request carries no such file.
func (s *Server) stageUpload(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	return filex.SaveTemp(s.deps.UploadDir, fh.Filename, f)
}

// formList reads a repeated form field. A single comma-separated value is
// split as well.
func formList(c *gin.Context, field string) []string {
	values := c.PostFormArray(field)
	if len(values) != 1 {
		return values
	}
	var out []string
	for _, v := range strings.Split(values[0], ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// pathUUID reads a uuid path parameter. Anything else cannot name a stored
// record, so it is answered with 404.
func pathUUID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "not found"})
		return "", false
	}
	return id, true
}
