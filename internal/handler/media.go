package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/media"
	"github.com/iliyamo/course-marketplace/internal/model"
)

// MediaAPI stores uploads and tracks HLS conversions.
type MediaAPI interface {
	UploadImage(ctx context.Context, up media.Upload) (*model.UploadedFile, error)
	UploadVideo(ctx context.Context, up media.Upload) (*model.UploadedFile, error)
	UploadVideoHLS(ctx context.Context, up media.Upload) (*model.MediaJob, error)
	VideoStatus(ctx context.Context, id string) (*model.MediaJob, error)
}

// MediaHandler serves /v1/media.
type MediaHandler struct {
	svc MediaAPI
}

func NewMediaHandler(svc MediaAPI) *MediaHandler { return &MediaHandler{svc: svc} }

// withUpload opens the multipart "file" field and hands it to fn.
func withUpload(c echo.Context, fn func(media.Upload) error) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("no file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Internal("open upload", err)
	}
	defer f.Close()
	return fn(media.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
}

func (h *MediaHandler) UploadImage(c echo.Context) error {
	return withUpload(c, func(up media.Upload) error {
		out, err := h.svc.UploadImage(c.Request().Context(), up)
		if err != nil {
			return err
		}
		return ok(c, http.StatusCreated, "image uploaded", out)
	})
}

func (h *MediaHandler) UploadVideo(c echo.Context) error {
	return withUpload(c, func(up media.Upload) error {
		out, err := h.svc.UploadVideo(c.Request().Context(), up)
		if err != nil {
			return err
		}
		return ok(c, http.StatusCreated, "video uploaded", out)
	})
}

// UploadVideoHLS accepts the source video and answers 202 with the job to
// poll.
func (h *MediaHandler) UploadVideoHLS(c echo.Context) error {
	return withUpload(c, func(up media.Upload) error {
		job, err := h.svc.UploadVideoHLS(c.Request().Context(), up)
		if err != nil {
			return err
		}
		return ok(c, http.StatusAccepted, "video is being processed", job)
	})
}

func (h *MediaHandler) VideoStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	job, err := h.svc.VideoStatus(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", job)
}
