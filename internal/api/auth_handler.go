package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeforge/internal/api/middleware"
	"resumeforge/internal/auth"
	"resumeforge/internal/config"
	"resumeforge/internal/database"
	"resumeforge/internal/mailer"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"
const resetTokenKeyPrefix = "auth:reset:"

// AuthHandler serves sign-up, sign-in, token refresh, sign-out and the
// password reset round trip.
type AuthHandler struct {
	db           *gorm.DB
	authService  *auth.AuthService
	redis        redis.UniversalClient
	mail         mailer.Mailer
	logger       *slog.Logger
	authCfg      config.AuthConfig
	cookieDomain string
}

// NewAuthHandler constructs the auth handler.
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, mail mailer.Mailer, logger *slog.Logger, authCfg config.AuthConfig, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		db:           db,
		authService:  authService,
		redis:        redisClient,
		mail:         mail,
		logger:       logger,
		authCfg:      authCfg,
		cookieDomain: cookieDomain,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register creates a new account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		logger.Info("register conflict: account already exists")
		Conflict(c, "email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Email:        email,
		PasswordHash: hashed,
	}

	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("account registered", slog.Uint64("user_id", uint64(user.ID)))
	c.Status(http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login checks the credentials and returns a token pair. Attempts are rate
// limited per IP+email; repeated failures lock the account temporarily.
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if count > int64(h.authCfg.LoginRateLimitPerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	lockKey := "lock:login:" + email
	if ttl, _ := h.redis.TTL(ctx, lockKey).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "account temporarily locked"})
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: account not found")
			_ = h.incrementLoginFail(ctx, email)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		_ = h.incrementLoginFail(ctx, email)
		Unauthorized(c)
		return
	}

	_ = h.redis.Del(ctx, "lock:login:fail:"+email).Err()

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates the refresh token and issues a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" {
		logger.Info("refresh token wrong type", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return
	}
	if claims.ID == "" {
		logger.Info("refresh token missing jti")
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Get(ctx, key).Err(); err == nil {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	} else if !errors.Is(err, redis.Nil) {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(claims.UserID)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// Rotate the old refresh token so it cannot be replayed.
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair)
}

// Logout blacklists the refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("logout token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" {
		logger.Info("logout wrong token type", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return
	}
	if claims.ID == "" {
		logger.Info("logout token missing jti")
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
	})
	c.Status(http.StatusOK)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword issues a single-use reset token and mails it to the
// account. The response is 202 regardless of whether the account exists, so
// the endpoint cannot be used to enumerate emails.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("forgot password lookup failed", slog.Any("error", err))
		}
		c.Status(http.StatusAccepted)
		return
	}

	token := uuid.NewString()
	key := resetTokenKeyPrefix + token
	if err := h.redis.Set(ctx, key, user.ID, h.authCfg.ResetTokenTTL()).Err(); err != nil {
		logger.Error("store reset token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if h.mail != nil {
		if err := h.mail.SendPasswordReset(user.Email, token); err != nil {
			logger.Error("send reset mail failed", slog.Any("error", err))
			Internal(c, "failed to send reset mail")
			return
		}
	}

	logger.Info("password reset issued", slog.Uint64("user_id", uint64(user.ID)))
	c.Status(http.StatusAccepted)
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// ResetPassword consumes a reset token and stores the new password hash.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	key := resetTokenKeyPrefix + req.Token
	userID, err := h.redis.GetDel(ctx, key).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			BadRequest(c, "invalid or expired reset token")
			return
		}
		logger.Error("reset token lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", uint(userID)).
		Update("password_hash", hashed).Error; err != nil {
		logger.Error("reset password update failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("password reset completed", slog.Uint64("user_id", userID))
	c.Status(http.StatusOK)
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, tokenPair auth.TokenPair) {
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: tokenPair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	cookie := &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
		Expires:  time.Now().Add(h.authService.RefreshTokenTTL()),
	}
	http.SetCookie(c.Writer, cookie)
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.authService.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func (h *AuthHandler) isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandler) getCookieDomain() string { return strings.TrimSpace(h.cookieDomain) }

func (h *AuthHandler) incrementLoginFail(ctx context.Context, email string) error {
	failKey := "lock:login:fail:" + email
	count, err := h.redis.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, failKey, h.authCfg.LoginLockTTL()).Err()
	}
	if count >= int64(h.authCfg.LoginLockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+email, "1", h.authCfg.LoginLockTTL()).Err()
	}
	return nil
}
