package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/api/handlers"
	"github.com/Marga-Ghale/ora-workspaces/internal/api/middleware"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps carries everything the HTTP surface needs. Cache, Hub and
// WebSocket are optional.
type RouterDeps struct {
	Services    *service.Services
	Database    Pinger
	Cache       Pinger
	Hub         *socket.Hub
	WebSocket   *socket.Handler
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.New(corsConfig(deps.CORSOrigins)))

	h := handlers.NewHandlers(deps.Services, log)

	r.GET("/health", healthHandler(deps))
	if deps.WebSocket != nil {
		r.GET("/ws", deps.WebSocket.HandleWebSocket)
	}

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}

	protected := r.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Services.Auth, log))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.GET("/users/me", h.User.GetCurrentUser)

		workspaces := protected.Group("/workspaces")
		{
			workspaces.GET("", h.Workspace.List)
			workspaces.POST("", h.Workspace.Create)
			workspaces.GET("/:workspace", h.Workspace.Get)
			workspaces.PUT("/:workspace", h.Workspace.Update)
			workspaces.DELETE("/:workspace", h.Workspace.Delete)
			workspaces.PUT("/:workspace/accessed-at", h.Workspace.TouchAccessed)

			members := workspaces.Group("/:workspace/members")
			{
				members.GET("", h.Member.List)
				members.POST("", h.Member.Add)
				members.PUT("/:userId/role", h.Member.UpdateRole)
				members.DELETE("/:userId", h.Member.Remove)
			}

			projects := workspaces.Group("/:workspace/projects")
			{
				projects.GET("", h.Project.List)
				projects.POST("", h.Project.Create)
				projects.GET("/:projectId", h.Project.Get)
				projects.PUT("/:projectId", h.Project.Update)
				projects.DELETE("/:projectId", h.Project.Delete)

				tasks := projects.Group("/:projectId/tasks")
				{
					tasks.GET("", h.Task.List)
					tasks.POST("", h.Task.Create)
					tasks.GET("/:taskId", h.Task.Get)
					tasks.PUT("/:taskId", h.Task.Update)
					tasks.DELETE("/:taskId", h.Task.Delete)

					tasks.GET("/:taskId/comments", h.Comment.List)
					tasks.POST("/:taskId/comments", h.Comment.Create)
					tasks.DELETE("/:taskId/comments/:commentId", h.Comment.Delete)
				}
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.Envelope{Error: "route not found", StatusCode: http.StatusNotFound})
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowCredentials = false
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	if len(origins) == 0 {
		cfg.AllowCredentials = false
		cfg.AllowAllOrigins = true
	}
	return cfg
}

func healthHandler(deps RouterDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		database := "connected"
		if deps.Database == nil || deps.Database.Ping(ctx) != nil {
			database = "unreachable"
			status = http.StatusServiceUnavailable
		}

		cache := "disabled"
		if deps.Cache != nil {
			cache = "connected"
			if err := deps.Cache.Ping(ctx); err != nil {
				cache = "unreachable"
			}
		}

		wsClients := 0
		if deps.Hub != nil {
			wsClients = deps.Hub.GetConnectedClientsCount()
		}

		env := handlers.Envelope{
			OK: status == http.StatusOK,
			Data: gin.H{
				"timestamp":  time.Now().UTC(),
				"database":   database,
				"cache":      cache,
				"ws_clients": wsClients,
			},
		}
		if !env.OK {
			env.Error = "service unavailable"
			env.StatusCode = status
		}
		c.JSON(status, env)
	}
}
