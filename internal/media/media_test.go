package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/queue"
)

func newJobStore(t *testing.T) (*JobStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewJobStore(rdb, time.Hour), mr
}

func TestJobStoreExpires(t *testing.T) {
	jobs, mr := newJobStore(t)
	ctx := context.Background()

	require.NoError(t, jobs.Put(ctx, model.MediaJob{ID: "j1", Status: model.JobProcessing}))
	got, err := jobs.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, got.Status)

	mr.FastForward(2 * time.Hour)
	_, err = jobs.Get(ctx, "j1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStorageSaveRefusesOverwrite(t *testing.T) {
	st, err := NewStorage(t.TempDir(), "http://api.test/")
	require.NoError(t, err)

	n, err := st.Save(ImagesDir, "a.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, "http://api.test/static/images/a.png", st.URL(ImagesDir, "a.png"))

	_, err = st.Save(ImagesDir, "a.png", strings.NewReader("again"))
	assert.Error(t, err)
}

func TestFFmpegRecordsOutcome(t *testing.T) {
	jobs, _ := newJobStore(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "input_j.mp4")
	require.NoError(t, os.WriteFile(input, []byte("raw"), 0o644))

	f := NewFFmpeg("ffmpeg", jobs, zerolog.Nop())
	var args []string
	f.run = func(_ context.Context, _ string, a ...string) ([]byte, error) {
		args = a
		return nil, nil
	}
	job := queue.TranscodeJob{JobID: "j", InputPath: input, OutputDir: filepath.Join(dir, "out"), URL: "http://x/playlist.m3u8"}
	require.NoError(t, f.Process(context.Background(), job))

	got, err := jobs.Get(context.Background(), "j")
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
	assert.Equal(t, job.URL, got.URL)
	assert.Contains(t, args, "hls")
	assert.NoFileExists(t, input)

	f.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Invalid data found when processing input"), errors.New("exit status 1")
	}
	job.JobID = "k"
	require.NoError(t, f.Process(context.Background(), job))
	got, err = jobs.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Contains(t, got.Error, "Invalid data")
}

type fakeQueue struct {
	err  error
	jobs []queue.TranscodeJob
}

func (q *fakeQueue) EnqueueTranscode(_ context.Context, job queue.TranscodeJob) error {
	q.jobs = append(q.jobs, job)
	return q.err
}

func newService(t *testing.T, q *fakeQueue) (*Service, *Storage) {
	t.Helper()
	st, err := NewStorage(t.TempDir(), "http://api.test")
	require.NoError(t, err)
	jobs, _ := newJobStore(t)
	return NewService(st, jobs, q, zerolog.Nop()), st
}

func TestUploadImageValidation(t *testing.T) {
	svc, st := newService(t, &fakeQueue{})
	ctx := context.Background()

	_, err := svc.UploadImage(ctx, Upload{Name: "a.txt", ContentType: "text/plain", Body: strings.NewReader("x")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.UploadImage(ctx, Upload{Name: "a.png", ContentType: "image/png", Size: MaxImageSize + 1, Body: strings.NewReader("x")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	out, err := svc.UploadImage(ctx, Upload{Name: "a.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.FileName, ".png"))
	assert.FileExists(t, st.Path(ImagesDir, out.FileName))
}

func TestUploadVideoPicksExtensionFromType(t *testing.T) {
	svc, st := newService(t, &fakeQueue{})
	ctx := context.Background()

	for _, up := range []Upload{
		{Name: "x.html", ContentType: "video/mp4", Size: 5, Body: strings.NewReader("<svg>")},
		{Name: "x.mp4", ContentType: "text/html", Size: 5, Body: strings.NewReader("<svg>")},
		{Name: "x.svg", ContentType: "video/x-anything", Size: 5, Body: strings.NewReader("<svg>")},
	} {
		_, err := svc.UploadVideo(ctx, up)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), up.Name)
	}
	entries, err := os.ReadDir(st.Path(VideosDir))
	require.NoError(t, err)
	assert.Empty(t, entries)

	out, err := svc.UploadVideo(ctx, Upload{Name: "clip", ContentType: "video/quicktime", Size: 3, Body: strings.NewReader("mov")})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.FileName, ".mov"))

	out, err = svc.UploadVideo(ctx, Upload{Name: "clip.MP4", ContentType: "video/mp4", Size: 3, Body: strings.NewReader("mp4")})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.FileName, ".mp4"))
	assert.FileExists(t, st.Path(VideosDir, out.FileName))
}

func TestUploadVideoHLSQueuesJob(t *testing.T) {
	q := &fakeQueue{}
	svc, st := newService(t, q)
	ctx := context.Background()

	_, err := svc.UploadVideoHLS(ctx, Upload{Name: "clip.avi", Body: strings.NewReader("x")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	job, err := svc.UploadVideoHLS(ctx, Upload{Name: "clip.MP4", Size: 3, Body: strings.NewReader("mp4")})
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, job.Status)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, st.Path(VideosDir, job.ID), q.jobs[0].OutputDir)
	assert.Equal(t, "http://api.test/static/videos/"+job.ID+"/playlist.m3u8", q.jobs[0].URL)
	assert.FileExists(t, q.jobs[0].InputPath)

	got, err := svc.VideoStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, got.Status)

	_, err = svc.VideoStatus(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUploadVideoHLSBrokerDown(t *testing.T) {
	q := &fakeQueue{err: errors.New("connection refused")}
	svc, st := newService(t, q)

	_, err := svc.UploadVideoHLS(context.Background(), Upload{Name: "clip.webm", Size: 1, Body: strings.NewReader("w")})
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.NoFileExists(t, q.jobs[0].InputPath)
	entries, err := os.ReadDir(st.Path(TempDir))
	require.NoError(t, err)
	assert.Empty(t, entries)

	got, err := svc.VideoStatus(context.Background(), q.jobs[0].JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
}

func TestHLSWithoutJobStore(t *testing.T) {
	st, err := NewStorage(t.TempDir(), "http://api.test")
	require.NoError(t, err)
	svc := NewService(st, nil, &fakeQueue{}, zerolog.Nop())

	_, err = svc.UploadVideoHLS(context.Background(), Upload{Name: "clip.mp4", Size: 1, Body: strings.NewReader("m")})
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	_, err = svc.VideoStatus(context.Background(), "any")
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}
