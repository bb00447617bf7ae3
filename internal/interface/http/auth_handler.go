package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/storelabs/storefront/internal/application"
	"github.com/storelabs/storefront/internal/domain/entity"
	"github.com/storelabs/storefront/internal/interface/middleware"
	"github.com/storelabs/storefront/pkg/apperr"
	"github.com/storelabs/storefront/pkg/helpers"
	"github.com/storelabs/storefront/pkg/response"
	"github.com/storelabs/storefront/pkg/validation"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookieManager(cookieDomain, cookieSecure)}
}

// userJSON is the sanitized user view; secret fields never appear here.
func userJSON(u *entity.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"role":       u.Role,
		"avatar_url": u.AvatarURL,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

type registerRequest struct {
	Name     string `form:"name" binding:"required,username"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,pwd"`
}

// Register handles POST /auth/register (multipart, optional avatar file).
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, apperr.InvalidInput("invalid payload", validation.ToDetails(err)...))
		return
	}

	in := application.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password}

	if fh, err := c.FormFile("avatar"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, apperr.UploadFailed(err))
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)
		in.Avatar = f
		in.AvatarFilename = fh.Filename
		in.AvatarContentType = fh.Header.Get("Content-Type")
	}

	u, err := h.Svc.Register(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, userJSON(u), "user registered successfully")
}

type loginRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login. The identifier may be an email or a name;
// the response sets both token cookies and echoes the pair in the body.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidInput("invalid payload", validation.ToDetails(err)...))
		return
	}
	identifier := req.Email
	if identifier == "" {
		identifier = req.Name
	}
	if identifier == "" {
		response.Error(c, apperr.InvalidInput("email or name is required"))
		return
	}

	u, pair, err := h.Svc.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"user":         userJSON(u),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "logged in successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /auth/refresh, reading the token from the body first
// and the cookie as fallback.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	presented := req.RefreshToken
	if presented == "" {
		presented, _ = c.Cookie(helpers.RefreshCookie)
	}
	if presented == "" {
		response.Error(c, apperr.Unauthorized("missing refresh token"))
		return
	}

	pair, err := h.Svc.Refresh(c.Request.Context(), presented)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "access token refreshed")
}

// Logout handles POST /auth/logout. Clearing an already-cleared session is
// still a success.
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	if err := h.Svc.Logout(c.Request.Context(), uid); err != nil {
		response.Error(c, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{}, "logged out successfully")
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString(middleware.CtxUserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "current user")
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword handles POST /auth/password/forgot. The response is the same
// whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidInput("invalid payload", validation.ToDetails(err)...))
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{}, "if the email exists, a reset link has been sent")
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

// ResetPassword handles POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidInput("invalid payload", validation.ToDetails(err)...))
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{}, "password updated successfully")
}
