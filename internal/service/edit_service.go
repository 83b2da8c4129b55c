package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"imgedit-backend/internal/model"
	"imgedit-backend/internal/storage"
	"imgedit-backend/internal/transform"
	"imgedit-backend/internal/worker"
	"imgedit-backend/pkg/logger"
)

// ImageSource names the image a prompt applies to. Upload wins when both
// are set; URL refers to an earlier result in the temp directory.
type ImageSource struct {
	Upload io.Reader
	URL    string
}

// Edited is the outcome of one prompt against one image. For refusals only
// Interpretation is set.
type Edited struct {
	Interpretation *model.Interpretation
	Result         *transform.Result
	Format         string
	Data           []byte
}

// Edit interprets userPrompt for img and, unless the model refused, applies
// and encodes the plan.
func Edit(ctx context.Context, interpreter Interpreter, img *transform.Decoded, userPrompt string) (*Edited, error) {
	pic := img.Picture
	interpretation, err := interpreter.Interpret(ctx, pic.Width(), pic.Height(), userPrompt)
	if err != nil {
		return nil, err
	}
	if interpretation.Kind == model.KindRefusal {
		return &Edited{Interpretation: interpretation}, nil
	}

	result, err := transform.Apply(pic, interpretation.Plan)
	if err != nil {
		return nil, err
	}
	format := transform.OutputFormat(interpretation.Plan.SaveAs, img.Format)
	data, err := transform.EncodeBytes(result.Picture, format)
	if err != nil {
		return nil, err
	}
	return &Edited{
		Interpretation: interpretation,
		Result:         result,
		Format:         format,
		Data:           data,
	}, nil
}

type EditService struct {
	sessions    storage.SessionStore
	images      *storage.TempImages
	interpreter Interpreter
	pool        *worker.Pool
}

func NewEditService(sessions storage.SessionStore, images *storage.TempImages, interpreter Interpreter, pool *worker.Pool) *EditService {
	return &EditService{
		sessions:    sessions,
		images:      images,
		interpreter: interpreter,
		pool:        pool,
	}
}

// NewImage decodes an upload and opens a session sized to it.
func (s *EditService) NewImage(filename string, r io.Reader) (*model.NewImageResponse, error) {
	decoded, err := transform.Decode(r)
	if err != nil {
		return nil, err
	}

	s.sessions.Sweep()
	pic := decoded.Picture
	session := s.sessions.Create(pic.Width(), pic.Height(), decoded.Mode)

	logger.WithFields(map[string]interface{}{
		"session_id": session.ID,
		"filename":   filename,
		"format":     decoded.Format,
		"mode":       decoded.Mode,
	}).Infof("new image %dx%d", pic.Width(), pic.Height())

	return &model.NewImageResponse{
		Type:      model.ResponseTypeNewImage,
		SessionID: session.ID,
		Filename:  filename,
		Width:     pic.Width(),
		Height:    pic.Height(),
		Format:    decoded.Format,
		Mode:      decoded.Mode,
	}, nil
}

// Prompt resolves the session first, so an unknown session is reported
// regardless of the image, then loads the image and runs the edit on the
// worker pool. The result is written to the temp directory and recorded on
// the session.
func (s *EditService) Prompt(ctx context.Context, sessionID, userPrompt string, src ImageSource) (*model.PromptResponse, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	img, err := s.loadImage(src)
	if err != nil {
		return nil, err
	}

	edited, err := worker.Do(ctx, s.pool, func(jobCtx context.Context) (*Edited, error) {
		return Edit(jobCtx, s.interpreter, img, userPrompt)
	})
	if err != nil {
		return nil, err
	}

	if edited.Interpretation.Kind == model.KindRefusal {
		return model.NewRefusalResponse(edited.Interpretation.Refusal), nil
	}

	filePath, fileURL, err := s.images.Save(session.ID, transform.Extension(edited.Format), edited.Data)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.AddTempFile(session.ID, filePath); err != nil {
		// The session expired while the job ran; nobody owns the file now.
		if rmErr := os.Remove(filePath); rmErr != nil {
			logger.Warnf("failed to remove orphaned image %s: %v", filePath, rmErr)
		}
		return nil, err
	}

	pic := edited.Result.Picture
	logger.WithFields(map[string]interface{}{
		"session_id": session.ID,
		"url":        fileURL,
	}).Infof("image transformed to %dx%d %s", pic.Width(), pic.Height(), edited.Format)

	return model.NewSuccessResponse(&model.TransformationSuccess{
		URL:            fileURL,
		Width:          pic.Width(),
		Height:         pic.Height(),
		Transformation: edited.Result.Plan,
	}), nil
}

func (s *EditService) loadImage(src ImageSource) (*transform.Decoded, error) {
	if src.Upload != nil {
		return transform.Decode(src.Upload)
	}
	if src.URL == "" {
		return nil, ErrNoImageProvided
	}

	path, err := s.images.Resolve(src.URL)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrImageNotFound
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrFileOperation, err)
	}
	defer f.Close()
	return transform.Decode(f)
}
