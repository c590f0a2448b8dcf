package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rutas/api/internal/service"
)

type errorRule struct {
	err     error
	status  int
	message string
}

// errorRules is matched in order; the first errors.Is hit wins.
var errorRules = []errorRule{
	{service.ErrMissingFields, http.StatusBadRequest, "All fields are required."},
	{service.ErrInvalidCredentials, http.StatusBadRequest, "Invalid credentials."},
	{service.ErrEmailNotVerified, http.StatusForbidden, "Email not verified. Please verify your email before logging in."},
	{service.ErrSuspended, http.StatusForbidden, "Account suspended. Contact an administrator."},
	{service.ErrForbidden, http.StatusForbidden, "Forbidden: You do not have the necessary permissions."},
	{service.ErrNotFound, http.StatusNotFound, "User not found."},
	{service.ErrConflict, http.StatusConflict, "Email already registered."},
	{service.ErrInvalidToken, http.StatusBadRequest, "Token is invalid or has expired."},
	{service.ErrBadPassword, http.StatusForbidden, "Password incorrect."},
	{service.ErrInvalidRole, http.StatusBadRequest, "Invalid role."},
	{service.ErrNoFields, http.StatusBadRequest, "No fields to update."},
	{service.ErrNoChanges, http.StatusNotFound, "User not found or no changes made."},
}

// messages overrides the default text of a rule for a single route.
type messages map[error]string

// fail writes the response for err. Errors outside the taxonomy are logged
// and answered with serverMsg so internals never reach the client.
func (h HandlerSet) fail(c *gin.Context, err error, serverMsg string, overrides messages) {
	for _, rule := range errorRules {
		if !errors.Is(err, rule.err) {
			continue
		}
		msg := rule.message
		if override, ok := overrides[rule.err]; ok {
			msg = override
		}
		c.JSON(rule.status, gin.H{"message": msg})
		return
	}

	h.log.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("route", c.FullPath()).
		Msg(serverMsg)
	c.JSON(http.StatusInternalServerError, gin.H{"message": serverMsg})
}

// bindJSON decodes the request body into dst. An empty body leaves dst at
// its zero value so the usual missing-field checks apply.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
