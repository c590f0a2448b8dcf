package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rutas/api/internal/middleware"
	"rutas/api/internal/models"
	"rutas/api/internal/service"
)

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Server error fetching users.", nil)
		return
	}

	resp := make([]models.UserSummary, 0, len(users))
	for _, user := range users {
		resp = append(resp, user.Summary())
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) GetUser(c *gin.Context) {
	claims, _ := middleware.Session(c)

	user, err := h.userService.Get(c.Request.Context(), actorFrom(claims), userIDParam(c))
	if err != nil {
		h.fail(c, err, "Server error fetching user.", messages{
			service.ErrForbidden: "Forbidden: You do not have permission to view this user.",
		})
		return
	}

	c.JSON(http.StatusOK, user.Summary())
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required."})
		return
	}

	_, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(c, err, "Server error creating user.", nil)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully."})
}

type updateUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No fields to update."})
		return
	}

	claims, _ := middleware.Session(c)
	err := h.userService.Update(c.Request.Context(), actorFrom(claims), userIDParam(c), service.UpdateUserInput{
		Email:    req.Email,
		Username: req.Username,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err, "Server error updating user.", messages{
			service.ErrForbidden: "Forbidden: You do not have permission to update this user.",
			service.ErrConflict:  "Email already in use.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully."})
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), userIDParam(c)); err != nil {
		h.fail(c, err, "Server error deleting user.", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully."})
}

func (h HandlerSet) ResendVerification(c *gin.Context) {
	result, err := h.userService.ResendVerification(c.Request.Context(), userIDParam(c), h.baseURL(c))
	if err != nil {
		if errors.Is(err, service.ErrMailFailed) {
			h.log.Error().Err(err).Int64("user_id", userIDParam(c)).Msg("resend verification failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send verification email."})
			return
		}
		h.fail(c, err, "Server error.", nil)
		return
	}

	msg := "Verification email resent."
	if result.Skipped {
		msg = "Verification email resent (skipped - SMTP not configured)."
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h HandlerSet) SendReset(c *gin.Context) {
	result, err := h.userService.SendReset(c.Request.Context(), userIDParam(c), h.baseURL(c))
	if err != nil {
		if errors.Is(err, service.ErrMailFailed) {
			h.log.Error().Err(err).Int64("user_id", userIDParam(c)).Msg("send reset failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send password reset email."})
			return
		}
		h.fail(c, err, "Server error.", nil)
		return
	}

	msg := "Password reset email sent."
	if result.Skipped {
		msg = "Password reset email sent (skipped - SMTP not configured)."
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

type suspendRequest struct {
	Suspend bool `json:"suspend"`
}

func (h HandlerSet) SuspendUser(c *gin.Context) {
	var req suspendRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "suspend must be a boolean."})
		return
	}

	if err := h.userService.SetSuspended(c.Request.Context(), userIDParam(c), req.Suspend); err != nil {
		h.fail(c, err, "Server error.", nil)
		return
	}

	msg := "User unsuspended."
	if req.Suspend {
		msg = "User suspended."
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
