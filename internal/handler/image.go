package handler

import (
	"net/http"

	"imgedit-backend/internal/model"
	"imgedit-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type ImageHandler struct {
	editService *service.EditService
}

func NewImageHandler(editService *service.EditService) *ImageHandler {
	return &ImageHandler{
		editService: editService,
	}
}

// NewImage handles POST /new-image/.
func (h *ImageHandler) NewImage(c *gin.Context) {
	var req model.NewImageRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	file, err := req.ImageFile.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	defer file.Close()

	resp, err := h.editService.NewImage(req.ImageFile.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Prompt handles POST /prompt/. The image is either a new upload or the URL
// of an earlier result.
func (h *ImageHandler) Prompt(c *gin.Context) {
	var req model.PromptRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	src := service.ImageSource{URL: req.ImageURL}
	if req.ImageFile != nil {
		file, err := req.ImageFile.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		defer file.Close()
		src.Upload = file
	}

	resp, err := h.editService.Prompt(c.Request.Context(), req.SessionID, req.Prompt, src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
