package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// request bodies are tiny JSON documents except for avatar uploads
const maxJSONBody = 1 << 20

// UsersStore is everything the HTTP layer needs from the users collection.
type UsersStore interface {
	handlers.UserStore
	handlers.AvatarStore
	auth.TokenStore
}

// TasksStore is the task collection surface plus the deletion cascade.
type TasksStore interface {
	handlers.TaskStore
	handlers.TaskCascader
}

// NewRouter wires the Postgres-backed service.
func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	users := postgres.NewUsersRepo(pool, prom)
	tasks := postgres.NewTasksRepo(pool, prom)

	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	return assemble(log, cfg, reg, prom, users, tasks, ping)
}

// NewRouterWithStores lets tests (and DB-free dev mode) swap in the memory
// repos; metrics get a private registry so routers can be built repeatedly.
func NewRouterWithStores(log *slog.Logger, cfg config.Config, users UsersStore, tasks TasksStore) *gin.Engine {
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	return assemble(log, cfg, reg, prom, users, tasks, nil)
}

func assemble(
	log *slog.Logger,
	cfg config.Config,
	reg *prometheus.Registry,
	prom *observability.Prom,
	users UsersStore,
	tasks TasksStore,
	ping func() error,
) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	// patch structs are the field whitelist; unknown keys must fail the bind
	gin.EnableJsonDecoderDisallowUnknownFields()

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(otelgin.Middleware("taskhub-api"))
	r.Use(prom.GinHandleMiddleware())

	// session service + gate

	jwtManager := auth.NewManager(cfg.JWTSecret)
	sessions := auth.NewService(jwtManager, users)
	authMw := middlewares.NewAuthMiddleware(sessions)

	// handlers

	h := handlers.NewHealthHandler(ping)
	usersHandler := handlers.NewUsersHandler(users, sessions, tasks)
	tasksHandler := handlers.NewTasksHandler(tasks)
	avatarHandler := handlers.NewAvatarHandler(users, cfg.AvatarMaxBytes, cfg.AvatarSize)

	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	jsonBody := middlewares.MaxBodyBytes(maxJSONBody)

	// public routes

	r.POST("/users", jsonBody, usersHandler.Register)
	r.POST("/users/login", jsonBody, usersHandler.Login)
	r.GET("/users/:id/avatar", avatarHandler.Fetch)

	// everything else goes through the authorization gate

	authed := r.Group("", authMw.RequireAuth())

	authed.GET("/users", usersHandler.ListUsers)
	authed.GET("/users/me", usersHandler.Me)
	authed.GET("/users/:id", usersHandler.GetUserByID)
	authed.PATCH("/users/me", jsonBody, usersHandler.UpdateMe)
	authed.PATCH("/users/:id", jsonBody, usersHandler.UpdateUser)
	authed.POST("/users/logout", usersHandler.Logout)
	authed.POST("/users/logoutAll", usersHandler.LogoutAll)
	authed.DELETE("/users/me", usersHandler.DeleteMe)

	// multipart upload gets a little headroom over the raw image cap
	authed.POST("/users/me/avatar", middlewares.MaxBodyBytes(cfg.AvatarMaxBytes+(64<<10)), avatarHandler.Upload)
	authed.DELETE("/users/me/avatar", avatarHandler.Delete)

	authed.POST("/tasks", jsonBody, tasksHandler.CreateTask)
	authed.GET("/tasks", tasksHandler.ListTasks)
	authed.GET("/tasks/:id", tasksHandler.GetTask)
	authed.PATCH("/tasks/:id", jsonBody, tasksHandler.UpdateTask)
	authed.DELETE("/tasks/:id", tasksHandler.DeleteTask)

	return r
}
