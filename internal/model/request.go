package model

import "mime/multipart"

type NewImageRequest struct {
	ImageFile *multipart.FileHeader `form:"image_file" binding:"required"`
}

// PromptRequest names the image either by a fresh upload or by the URL of a
// previously returned result.
type PromptRequest struct {
	SessionID string                `form:"session_id" binding:"required"`
	Prompt    string                `form:"prompt" binding:"required"`
	ImageFile *multipart.FileHeader `form:"image_file"`
	ImageURL  string                `form:"image_url"`
}
