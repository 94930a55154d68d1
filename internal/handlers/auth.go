package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/config"
	"medibook-server/internal/models"
	"medibook-server/internal/repository"
	"medibook-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

// RegisterRequest represents the request body for user registration.
// Admin accounts are only created by the seed command.
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Role      string `json:"role" binding:"omitempty,oneof=patient doctor"`
	Phone     string `json:"phone"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	AccessToken  string                `json:"accessToken"`
	RefreshToken string                `json:"refreshToken"`
	User         *models.UserSanitized `json:"user,omitempty"`
}

// Register handles user registration and signs the new user in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var count int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	if count > 0 {
		utils.BadRequest(c, "User with this email already exists")
		return
	}

	role := models.RolePatient
	if req.Role != "" {
		role, _ = models.ParseRole(req.Role)
	}
	user := models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
		Role:      role,
		Phone:     req.Phone,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.Create(&user).Error; err != nil {
		if repository.IsDuplicateKey(err) {
			utils.BadRequest(c, "User with this email already exists")
			return
		}
		utils.RespondError(c, err)
		return
	}

	resp, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	utils.Created(c, "User registered successfully", resp)
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	resp, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	utils.Success(c, "Login successful", resp)
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	claims, err := utils.ValidateToken(token, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token: "+err.Error())
		return
	}

	var stored models.RefreshToken
	err = h.DB.Where("token_hash = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
		models.HashToken(token), claims.UserID, false, time.Now()).First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.Unauthorized(c, "User no longer exists")
		return
	}

	stored.IsRevoked = true
	if err := h.DB.Save(&stored).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	resp, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	resp.User = nil
	utils.Success(c, "Access token refreshed successfully", resp)
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the refresh token from the cookie or the body. Unknown
// tokens are not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(refreshCookie)
	if token == "" {
		var req LogoutRequest
		_ = c.ShouldBindJSON(&req)
		token = req.RefreshToken
	}

	if token != "" {
		err := h.DB.Model(&models.RefreshToken{}).
			Where("token_hash = ? AND is_revoked = ?", models.HashToken(token), false).
			Updates(map[string]interface{}{"is_revoked": true, "expires_at": time.Now()}).Error
		if err != nil {
			utils.RespondError(c, err)
			return
		}
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", !h.Cfg.IsDevelopment(), true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User profile not found")
			return
		}
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Avatar    string `json:"avatar"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// issueTokens signs a token pair, stores the refresh token digest and sets
// the refresh cookie. It writes the error response itself.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (*AuthResponse, bool) {
	access, refresh, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}

	stored := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: models.HashToken(refresh),
		ExpiresAt: time.Now().Add(h.Cfg.RefreshTTL()),
	}
	if err := h.DB.Create(&stored).Error; err != nil {
		utils.RespondError(c, err)
		return nil, false
	}

	c.SetCookie(refreshCookie, refresh, int(h.Cfg.RefreshTTL().Seconds()), "/", "", !h.Cfg.IsDevelopment(), true)

	sanitized := user.Sanitize()
	return &AuthResponse{AccessToken: access, RefreshToken: refresh, User: &sanitized}, true
}
