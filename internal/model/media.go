package model

// JobStatus is the lifecycle state of a transcoding job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// MediaJob tracks an asynchronous HLS conversion by id.
type MediaJob struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	URL    string    `json:"url,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// UploadedFile describes a file written to the upload directory.
type UploadedFile struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	Size     int64  `json:"size"`
}
