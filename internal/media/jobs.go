package media

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("media job not found")

// JobStore keeps transcoding job status in Redis so every instance sees
// the same state and it survives restarts until the TTL passes.
type JobStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewJobStore(rdb *redis.Client, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobStore{rdb: rdb, ttl: ttl, prefix: "media:job:"}
}

// Put stores job, refreshing its TTL.
func (s *JobStore) Put(ctx context.Context, job model.MediaJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+job.ID, b, s.ttl).Err()
}

// Get loads a job by id.
func (s *JobStore) Get(ctx context.Context, id string) (*model.MediaJob, error) {
	b, err := s.rdb.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job model.MediaJob
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
