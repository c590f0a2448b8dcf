package handlers

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rutas/api/internal/config"
	"rutas/api/internal/mail"
	"rutas/api/internal/middleware"
	"rutas/api/internal/models"
	"rutas/api/internal/repository"
	"rutas/api/internal/security"
	"rutas/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	db          *sql.DB
	cache       *redis.Client
	authService *service.AuthService
	userService *service.UserService
}

// NewHandlerSet wires the services. cache may be nil when redis is disabled.
func NewHandlerSet(
	log zerolog.Logger,
	db *sql.DB,
	cache *redis.Client,
	notifier mail.Notifier,
	tokens *service.TokenIssuer,
	cfg *config.AppConfig,
) HandlerSet {
	userRepo := repository.NewUserRepository(db)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		db:          db,
		cache:       cache,
		authService: service.NewAuthService(userRepo, tokens, notifier, cfg, log),
		userService: service.NewUserService(userRepo, tokens, notifier, cfg, log),
	}
}

func (h HandlerSet) AuthService() *service.AuthService {
	return h.authService
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/ping", h.Ping)
	router.GET("/healthz", h.Health)

	requireSession := middleware.Auth(h.cfg.Security.JWTSecret)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.GET("/me", requireSession, h.Me)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password/:token", h.ResetPassword)
		auth.GET("/verify-email/:token", h.VerifyEmail)
		auth.POST("/request-delete", h.RequestDelete)
		auth.POST("/confirm-delete/:token", h.ConfirmDelete)
	}

	users := router.Group("/users")
	users.Use(requireSession)
	{
		users.GET("", adminOnly, h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.POST("", adminOnly, h.CreateUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", adminOnly, h.DeleteUser)
		users.POST("/:id/resend-verification", adminOnly, h.ResendVerification)
		users.POST("/:id/send-reset", adminOnly, h.SendReset)
		users.POST("/:id/suspend", adminOnly, h.SuspendUser)
	}
}

// baseURL prefixes links in outgoing mail: the configured public URL, or
// the host the request came in on.
func (h HandlerSet) baseURL(c *gin.Context) string {
	if u := strings.TrimRight(h.cfg.App.PublicURL, "/"); u != "" {
		return u
	}
	return "http://" + c.Request.Host
}

func actorFrom(claims security.SessionClaims) service.Actor {
	return service.Actor{ID: claims.UserID, Role: models.Role(claims.Role)}
}

// userIDParam returns 0 for ids that do not parse, which matches no row.
func userIDParam(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
