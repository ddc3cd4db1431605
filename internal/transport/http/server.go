package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docsync-server/internal/auth"
	"github.com/vovakirdan/docsync-server/internal/config"
	"github.com/vovakirdan/docsync-server/internal/core"
	"github.com/vovakirdan/docsync-server/internal/store"
)

// NewServer builds the HTTP server: REST API for accounts and documents,
// plus the WebSocket entry point into the sync engine.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	docHandlers := NewDocumentHandlers(st, logger)

	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)
		api.POST("/guest", apiHandlers.GuestLogin)

		docs := api.Group("/documents")
		docs.Use(AuthMiddleware(authService, logger))
		{
			docs.POST("", docHandlers.CreateDocument)
			docs.GET("", docHandlers.ListDocuments)
			docs.GET("/:id", docHandlers.GetDocument)
			docs.GET("/:id/versions", docHandlers.ListVersions)
		}
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
