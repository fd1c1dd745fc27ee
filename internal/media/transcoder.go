package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/queue"
)

// PlaylistName is the HLS master playlist written into a job's directory.
const PlaylistName = "playlist.m3u8"

// JobWriter records job status.
type JobWriter interface {
	Put(ctx context.Context, job model.MediaJob) error
}

// FFmpeg converts queued uploads into 10 second HLS segments.
type FFmpeg struct {
	Bin  string
	Jobs JobWriter
	Log  zerolog.Logger

	// run executes the binary; tests replace it.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewFFmpeg(bin string, jobs JobWriter, log zerolog.Logger) *FFmpeg {
	return &FFmpeg{Bin: bin, Jobs: jobs, Log: log, run: execRun}
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Process runs ffmpeg for job and records the outcome.  A failed
// conversion is a terminal job state, not a delivery error; only a failure
// to record the state is returned.
func (f *FFmpeg) Process(ctx context.Context, job queue.TranscodeJob) error {
	defer func() {
		if err := os.Remove(job.InputPath); err != nil && !os.IsNotExist(err) {
			f.Log.Warn().Err(err).Str("path", job.InputPath).Msg("remove transcode input failed")
		}
	}()

	status := model.MediaJob{ID: job.JobID, Status: model.JobCompleted, URL: job.URL}
	if err := f.convert(ctx, job); err != nil {
		f.Log.Error().Err(err).Str("job_id", job.JobID).Msg("transcode failed")
		status = model.MediaJob{ID: job.JobID, Status: model.JobFailed, Error: err.Error()}
	} else {
		f.Log.Info().Str("job_id", job.JobID).Msg("transcode completed")
	}
	return f.Jobs.Put(ctx, status)
}

func (f *FFmpeg) convert(ctx context.Context, job queue.TranscodeJob) error {
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return err
	}
	out, err := f.run(ctx, f.Bin,
		"-y",
		"-i", job.InputPath,
		"-profile:v", "baseline",
		"-level", "3.0",
		"-start_number", "0",
		"-hls_time", "10",
		"-hls_list_size", "0",
		"-f", "hls",
		filepath.Join(job.OutputDir, PlaylistName),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", err, tail(string(out), 300))
	}
	return nil
}

// tail keeps the last n bytes of ffmpeg's output, where the error is.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
