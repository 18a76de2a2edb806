package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/access"
	"github.com/harentsoaR/armline-api/internal/middleware"
	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/repository"
	"github.com/harentsoaR/armline-api/internal/services"
	"github.com/harentsoaR/armline-api/internal/utils"
	"github.com/harentsoaR/armline-api/internal/validator"
)

const (
	verifyTokenTTL = 48 * time.Hour
	resetTokenTTL  = time.Hour

	msgBadCredentials = "Failed to sign in. Please check your email and password."
	msgBadResetLink   = "This password reset link is invalid or has expired."
	msgResetSent      = "If an account exists for this email, a password reset link has been sent. Please check your inbox."
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers a student or parent. The account starts pending and
// unverified.
func (h *Handler) SignUp(c *gin.Context) {
	var req validator.SignUp
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		validationError(c, err)
		return
	}

	document, err := services.NormalizeVerificationImage(req.VerificationImage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": gin.H{"verificationImage": err.Error()}})
		return
	}

	role := req.Role()
	user := &models.User{
		FullName:          strings.TrimSpace(req.FullName),
		Email:             strings.TrimSpace(req.Email),
		Role:              role,
		UserType:          models.UserTypeLabel(role),
		School:            strings.TrimSpace(req.School),
		Status:            models.AccountPending,
		VerificationImage: document,
	}
	h.register(c, user, req.Password)
}

// AdminRegister registers a school administrator, pending superAdmin approval.
func (h *Handler) AdminRegister(c *gin.Context) {
	var req validator.AdminRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		validationError(c, err)
		return
	}

	user := &models.User{
		FullName:   strings.TrimSpace(req.FullName),
		Email:      strings.TrimSpace(req.Email),
		Role:       models.RoleAdmin,
		UserType:   models.UserTypeLabel(models.RoleAdmin),
		School:     strings.TrimSpace(req.School),
		Department: req.Department,
		Status:     models.AccountPending,
	}
	h.register(c, user, req.Password)
}

func (h *Handler) register(c *gin.Context, user *models.User, password string) {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		h.internalError(c, err, "failed to hash password")
		return
	}
	user.Password = hashedPassword
	user.CreatedAt = h.now()

	if err := h.Repo.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		h.storeError(c, err, "Account")
		return
	}
	h.log(c).Info("account registered", zap.String("userId", user.ID.Hex()), zap.String("role", user.Role))

	h.sendVerification(c, user)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created. Please verify your email address. An administrator will review your account.",
		"user":    profile(user),
	})
}

func (h *Handler) sendVerification(c *gin.Context, u *models.User) {
	token, err := utils.GenerateJWT(h.Options.JWTSecret, utils.Claims{UserID: u.ID.Hex(), Purpose: utils.PurposeVerifyEmail}, verifyTokenTTL)
	if err != nil {
		h.log(c).Error("failed to issue verification token", zap.Error(err))
		return
	}
	h.NotificationSvc.SendVerificationEmail(u, h.link("/verify-email", token))
}

func (h *Handler) link(path, token string) string {
	return strings.TrimRight(h.Options.PublicBaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// authenticate checks credentials and answers 401 itself on failure.
func (h *Handler) authenticate(c *gin.Context) (*models.User, bool) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return nil, false
	}
	user, err := h.Repo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.internalError(c, err, "failed to look up account")
			return nil, false
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgBadCredentials})
		return nil, false
	}
	if !utils.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgBadCredentials})
		return nil, false
	}
	return user, true
}

func (h *Handler) issueToken(c *gin.Context, user *models.User) (string, bool) {
	token, err := utils.GenerateJWT(h.Options.JWTSecret, utils.Claims{
		UserID:  user.ID.Hex(),
		Role:    user.Role,
		Purpose: utils.PurposeAccess,
	}, h.Options.TokenTTL)
	if err != nil {
		h.internalError(c, err, "could not generate token")
		return "", false
	}
	return token, true
}

// Login signs in a student or parent. The email must be verified and the
// account approved.
func (h *Handler) Login(c *gin.Context) {
	user, ok := h.authenticate(c)
	if !ok {
		return
	}
	if !user.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email address first. Check your inbox for a verification link."})
		return
	}
	if !user.IsApproved() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your account is still pending approval by an administrator."})
		return
	}

	token, ok := h.issueToken(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": profile(user), "redirect": access.HomeFor(user)})
}

// AdminLogin signs in an administrator and tells the client where to go.
func (h *Handler) AdminLogin(c *gin.Context) {
	user, ok := h.authenticate(c)
	if !ok {
		return
	}
	if !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied. This portal is for administrators only."})
		return
	}
	switch user.Status {
	case models.AccountApproved:
	case models.AccountRejected:
		c.JSON(http.StatusForbidden, gin.H{"error": "Your admin account request has been rejected."})
		return
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Your admin account is still pending approval."})
		return
	}

	token, ok := h.issueToken(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": profile(user), "redirect": access.HomeFor(user)})
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	claims, err := utils.ValidateJWT(h.Options.JWTSecret, c.Query("token"), utils.PurposeVerifyEmail)
	if err != nil {
		badRequest(c, "This verification link is invalid or has expired.")
		return
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		badRequest(c, "This verification link is invalid or has expired.")
		return
	}
	if err := h.Repo.MarkEmailVerified(c.Request.Context(), id); err != nil {
		h.storeError(c, err, "Account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your email address has been verified."})
}

// ForgotPassword answers the same way whether or not the account exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		badRequest(c, "Please enter your email address.")
		return
	}

	user, err := h.Repo.GetUserByEmail(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		token, err := utils.GenerateJWT(h.Options.JWTSecret, utils.Claims{
			UserID:         user.ID.Hex(),
			Purpose:        utils.PurposeResetPassword,
			PwdFingerprint: utils.PasswordFingerprint(user.Password),
		}, resetTokenTTL)
		if err != nil {
			h.log(c).Error("failed to issue reset token", zap.Error(err))
			break
		}
		h.NotificationSvc.SendPasswordReset(user, h.link("/reset-password", token))
	case !errors.Is(err, repository.ErrNotFound):
		h.log(c).Error("failed to look up account for password reset", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": msgResetSent})
}

// ResetPassword sets a new password. The token stops working once the
// password it was issued against has changed.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req validator.PasswordReset
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		validationError(c, err)
		return
	}

	claims, err := utils.ValidateJWT(h.Options.JWTSecret, req.Token, utils.PurposeResetPassword)
	if err != nil {
		badRequest(c, msgBadResetLink)
		return
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		badRequest(c, msgBadResetLink)
		return
	}
	user, err := h.Repo.GetUserByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			badRequest(c, msgBadResetLink)
			return
		}
		h.storeError(c, err, "Account")
		return
	}
	if claims.PwdFingerprint != utils.PasswordFingerprint(user.Password) {
		badRequest(c, msgBadResetLink)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		h.internalError(c, err, "failed to hash password")
		return
	}
	if err := h.Repo.UpdatePassword(c.Request.Context(), id, hashedPassword); err != nil {
		h.storeError(c, err, "Account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your password has been reset. You can now sign in."})
}

// GetCurrentUser returns the signed-in user's profile.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, profile(middleware.CurrentUser(c)))
}

// UpdateCurrentUser lets a user change their full name.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	var req struct {
		FullName string `json:"fullName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Full name is required.", "fields": gin.H{"fullName": "Full name is required."}})
		return
	}

	user, err := h.Repo.UpdateUserProfile(c.Request.Context(), middleware.CurrentUser(c).ID, name)
	if err != nil {
		h.storeError(c, err, "Account")
		return
	}
	c.JSON(http.StatusOK, profile(user))
}
