// Package https_server builds the gin engine: middleware, static blobs and routes.
package https_server

import (
	"evo_chat_server/internal/config"
	"evo_chat_server/internal/handler"
	"evo_chat_server/internal/infrastructure/logger"
	"evo_chat_server/internal/infrastructure/middleware"
	"evo_chat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init returns the configured engine.
// Order: logging, panic recovery, CORS, optional TLS redirect, static blobs, routes.
func Init(conf *config.Config, handlers *handler.Handlers) *gin.Engine {
	if conf.MainConfig.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	// blank engine, gin.Default's logger is replaced by zap
	engine := gin.New()
	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// leave off when a reverse proxy terminates TLS
	if conf.MainConfig.ForceTLS {
		engine.Use(middleware.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	if conf.StaticSrcConfig.MaxUploadBytes > 0 {
		engine.MaxMultipartMemory = conf.StaticSrcConfig.MaxUploadBytes
	}
	engine.Static("/static/avatars", conf.StaticAvatarPath)
	engine.Static("/static/files", conf.StaticFilePath)

	rt := router.NewRouter(handlers)
	rt.RegisterRoutes(engine)

	return engine
}
