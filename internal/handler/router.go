package handler

import (
	"net/http"
	"time"

	"imgedit-backend/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every route of the editor onto a gin engine.
func NewRouter(cfg *config.Config, imageHandler *ImageHandler, staticHandler *StaticHandler) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	if cfg.Server.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	router.GET("/", staticHandler.Index)
	router.HEAD("/", staticHandler.Index)
	router.GET("/favicon.ico", staticHandler.Favicon)
	router.GET("/main.js", staticHandler.MainJS)
	router.Static("/static", cfg.Storage.StaticDir)

	router.POST("/new-image/", imageHandler.NewImage)
	router.POST("/prompt/", imageHandler.Prompt)

	return router
}
