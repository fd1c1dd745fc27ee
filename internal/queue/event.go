// Package queue carries asynchronous work over RabbitMQ: outbound mail and
// HLS transcoding jobs.
package queue

import "time"

// Queue names.  Both are durable and consumed by this same binary.
const (
	MailQueue      = "mail.outbound"
	TranscodeQueue = "media.transcode"
)

// TranscodeJob asks a worker to turn InputPath into an HLS playlist under
// OutputDir.  URL is the public address the playlist will be served from.
type TranscodeJob struct {
	JobID       string    `json:"job_id"`
	InputPath   string    `json:"input_path"`
	OutputDir   string    `json:"output_dir"`
	URL         string    `json:"url"`
	RequestedAt time.Time `json:"requested_at"`
}
