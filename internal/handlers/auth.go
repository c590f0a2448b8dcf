package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rutas/api/internal/middleware"
	"rutas/api/internal/models"
	"rutas/api/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required."})
		return
	}

	_, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		BaseURL:  h.baseURL(c),
	})
	if err != nil {
		h.fail(c, err, "Server error during registration.", nil)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully. Verification email sent."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required."})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err, "Server error during login.", messages{
			service.ErrMissingFields: "Email and password are required.",
		})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token: result.Token,
		User:  result.User.Public(),
	})
}

func (h HandlerSet) Me(c *gin.Context) {
	claims, ok := middleware.Session(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied."})
		return
	}

	user, err := h.authService.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err, "Server error.", nil)
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

type emailRequest struct {
	Email string `json:"email"`
}

const (
	resetLinkSent    = "If an account with that email exists, a password reset link has been sent."
	deletionLinkSent = "If an account with that email exists, a deletion link has been sent."
)

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required."})
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email, h.baseURL(c)); err != nil {
		h.fail(c, err, "Server error during password reset request.", messages{
			service.ErrMissingFields: "Email is required.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": resetLinkSent})
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req passwordRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "New password is required."})
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.fail(c, err, "Server error during password reset.", messages{
			service.ErrMissingFields: "New password is required.",
			service.ErrInvalidToken:  "Password reset token is invalid or has expired.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully."})
}

func (h HandlerSet) VerifyEmail(c *gin.Context) {
	if err := h.authService.VerifyEmail(c.Request.Context(), c.Param("token")); err != nil {
		h.fail(c, err, "Server error during email verification.", messages{
			service.ErrInvalidToken: "Verification token is invalid or has expired.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully."})
}

func (h HandlerSet) RequestDelete(c *gin.Context) {
	var req emailRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required."})
		return
	}

	if err := h.authService.RequestDeletion(c.Request.Context(), req.Email, h.baseURL(c)); err != nil {
		h.fail(c, err, "Server error.", messages{
			service.ErrMissingFields: "Email is required.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": deletionLinkSent})
}

func (h HandlerSet) ConfirmDelete(c *gin.Context) {
	var req passwordRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password is required to confirm account deletion."})
		return
	}

	if err := h.authService.ConfirmDeletion(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.fail(c, err, "Server error.", messages{
			service.ErrMissingFields: "Password is required to confirm account deletion.",
			service.ErrInvalidToken:  "Deletion token is invalid or has expired.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully."})
}
