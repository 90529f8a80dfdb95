package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stagedesk/internal/config"
	"stagedesk/internal/demo"
	"stagedesk/internal/middleware"
	"stagedesk/internal/prefs"
	"stagedesk/internal/repository"
	"stagedesk/internal/session"
	"stagedesk/internal/storage"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *session.AuthService
	store    *session.Store
	profiles *repository.ProfileRepository
	prefs    *prefs.Store
	objects  *storage.ObjectStore
	demo     *demo.Controller
	db       *pgxpool.Pool
	cache    *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	auth *session.AuthService,
	store *session.Store,
	profiles *repository.ProfileRepository,
	prefStore *prefs.Store,
	objects *storage.ObjectStore,
	demoCtrl *demo.Controller,
	db *pgxpool.Pool,
	cache *redis.Client,
) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		store:    store,
		profiles: profiles,
		prefs:    prefStore,
		objects:  objects,
		demo:     demoCtrl,
		db:       db,
		cache:    cache,
	}
}

func (h HandlerSet) Routes(engine *gin.Engine) {
	engine.GET("/healthz", h.Health)

	// Public auth routes.
	engine.GET("/login", h.LoginPage)
	engine.POST("/login", h.Login)
	engine.POST("/register", h.Register)
	engine.POST("/reset-password", h.ResetPassword)
	engine.GET("/auth/google", h.GoogleRedirect)
	engine.GET("/auth/callback", h.OAuthCallback)
	engine.POST("/logout", h.Logout)
	engine.GET("/unauthorized", h.Unauthorized)

	var demoStatus middleware.DemoStatus
	if h.demo != nil {
		demoStatus = h.demo
	}
	guard := middleware.Guard(h.cfg, h.store, h.auth, demoStatus)

	// Protected app shell.
	engine.GET("/", guard, h.Shell)

	api := engine.Group("/api/v1")
	api.Use(guard)
	{
		api.GET("/me", h.Me)
		api.GET("/prefs", h.GetPrefs)
		api.PUT("/prefs", h.PutPrefs)
		api.POST("/account/password", h.UpdatePassword)
		api.PUT("/account/profile", h.UpdateProfile)
		api.POST("/account/avatar", h.UploadAvatar)
		api.POST("/demo/reset", h.DemoReset)

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole("admin"))
		admin.GET("/demo/events", h.AdminDemoEvents)
	}
}
