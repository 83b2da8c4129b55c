package handler

import (
	"net/http"

	"imgedit-backend/internal/assets"
	"imgedit-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type StaticHandler struct {
	indexFile   string
	faviconFile string
	scripts     *assets.ScriptCache
}

func NewStaticHandler(indexFile, faviconFile string, scripts *assets.ScriptCache) *StaticHandler {
	return &StaticHandler{
		indexFile:   indexFile,
		faviconFile: faviconFile,
		scripts:     scripts,
	}
}

func (h *StaticHandler) Index(c *gin.Context) {
	c.File(h.indexFile)
}

func (h *StaticHandler) Favicon(c *gin.Context) {
	c.File(h.faviconFile)
}

func (h *StaticHandler) MainJS(c *gin.Context) {
	data, err := h.scripts.Get()
	if err != nil {
		logger.Errorf("failed to load main.js: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "script unavailable"})
		return
	}
	c.Data(http.StatusOK, "text/javascript; charset=utf-8", data)
}
