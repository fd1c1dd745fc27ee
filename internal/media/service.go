package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/queue"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

// Upload limits.
const (
	MaxImageSize int64 = 10 << 20
	MaxVideoSize int64 = 100 << 20
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// videoTypes maps accepted video content types to the stored extension.
// The client's file name never picks the extension of a file served under
// /static.
var videoTypes = map[string]string{
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

var hlsInputs = map[string]bool{".mp4": true, ".webm": true}

// Upload is one file received from a multipart form.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// JobStatusStore reads and writes job status.
type JobStatusStore interface {
	JobWriter
	Get(ctx context.Context, id string) (*model.MediaJob, error)
}

// TranscodeQueue accepts HLS jobs.
type TranscodeQueue interface {
	EnqueueTranscode(ctx context.Context, job queue.TranscodeJob) error
}

// errNoJobStore is returned by the HLS flow when Redis is not configured.
var errNoJobStore = apperr.Unavailable("video processing is unavailable", nil)

// Service validates uploads, stores them and schedules HLS conversion.
type Service struct {
	store *Storage
	jobs  JobStatusStore
	queue TranscodeQueue
	log   zerolog.Logger
}

// NewService wires the media flows.  jobs may be nil, which disables HLS
// conversion and status lookups.
func NewService(store *Storage, jobs JobStatusStore, q TranscodeQueue, log zerolog.Logger) *Service {
	return &Service{store: store, jobs: jobs, queue: q, log: log}
}

// UploadImage stores a jpeg, png, gif or webp image of at most 10MB.
func (s *Service) UploadImage(ctx context.Context, up Upload) (*model.UploadedFile, error) {
	ext, ok := imageTypes[strings.ToLower(up.ContentType)]
	if !ok {
		return nil, apperr.Validation("only jpeg, png, gif and webp images are allowed")
	}
	if up.Size > MaxImageSize {
		return nil, apperr.Validation("image exceeds 10MB")
	}
	return s.save(ImagesDir, ext, MaxImageSize, up)
}

// UploadVideo stores an mp4, webm or mov video of at most 100MB as is.
func (s *Service) UploadVideo(ctx context.Context, up Upload) (*model.UploadedFile, error) {
	ext, ok := videoTypes[strings.ToLower(up.ContentType)]
	if !ok {
		return nil, apperr.Validation("only mp4, webm and mov videos are allowed")
	}
	if name := strings.ToLower(filepath.Ext(up.Name)); name != "" && name != ext {
		return nil, apperr.Validation("file extension does not match the video type")
	}
	if up.Size > MaxVideoSize {
		return nil, apperr.Validation("video exceeds 100MB")
	}
	return s.save(VideosDir, ext, MaxVideoSize, up)
}

// UploadVideoHLS stores an mp4 or webm file and queues its conversion.  The
// returned job starts in the processing state.
func (s *Service) UploadVideoHLS(ctx context.Context, up Upload) (*model.MediaJob, error) {
	if s.jobs == nil {
		return nil, errNoJobStore
	}
	ext := strings.ToLower(filepath.Ext(up.Name))
	if !hlsInputs[ext] {
		return nil, apperr.Validation("only mp4 and webm videos can be converted")
	}
	if up.Size > MaxVideoSize {
		return nil, apperr.Validation("video exceeds 100MB")
	}

	id := utils.NewID()
	input := "input_" + id + ext
	n, err := s.store.Save(TempDir, input, io.LimitReader(up.Body, MaxVideoSize+1))
	if err != nil {
		return nil, apperr.Internal("store upload", err)
	}
	if n > MaxVideoSize {
		s.store.Remove(TempDir, input)
		return nil, apperr.Validation("video exceeds 100MB")
	}

	job := model.MediaJob{ID: id, Status: model.JobProcessing}
	if err := s.jobs.Put(ctx, job); err != nil {
		s.store.Remove(TempDir, input)
		return nil, apperr.Internal("record media job", err)
	}

	err = s.queue.EnqueueTranscode(ctx, queue.TranscodeJob{
		JobID:       id,
		InputPath:   s.store.Path(TempDir, input),
		OutputDir:   s.store.Path(VideosDir, id),
		URL:         s.store.URL(VideosDir, id, PlaylistName),
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		s.store.Remove(TempDir, input)
		failed := model.MediaJob{ID: id, Status: model.JobFailed, Error: "could not queue conversion"}
		if perr := s.jobs.Put(ctx, failed); perr != nil {
			s.log.Error().Err(perr).Str("job_id", id).Msg("record failed job")
		}
		return nil, apperr.Unavailable("video processing is unavailable, try again later", err)
	}
	return &job, nil
}

// VideoStatus returns the state of a conversion job.
func (s *Service) VideoStatus(ctx context.Context, id string) (*model.MediaJob, error) {
	if s.jobs == nil {
		return nil, errNoJobStore
	}
	job, err := s.jobs.Get(ctx, id)
	if errors.Is(err, ErrJobNotFound) {
		return nil, apperr.NotFound("video job not found")
	}
	if err != nil {
		return nil, apperr.Internal("load media job", err)
	}
	return job, nil
}

func (s *Service) save(dir, ext string, limit int64, up Upload) (*model.UploadedFile, error) {
	name := fmt.Sprintf("%s%s", utils.NewID(), ext)
	n, err := s.store.Save(dir, name, io.LimitReader(up.Body, limit+1))
	if err != nil {
		return nil, apperr.Internal("store upload", err)
	}
	if n > limit {
		s.store.Remove(dir, name)
		return nil, apperr.Validation("file is too large")
	}
	return &model.UploadedFile{
		FileName: name,
		URL:      s.store.URL(dir, name),
		MimeType: up.ContentType,
		Size:     n,
	}, nil
}
