package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/course-marketplace/internal/mail"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	sent     []mail.Message
}

func (f *flakySender) Send(_ context.Context, m mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp 421 try again")
	}
	f.sent = append(f.sent, m)
	return nil
}

func TestMailHandlerRetriesUntilDelivered(t *testing.T) {
	s := &flakySender{failures: 2}
	body, err := json.Marshal(mail.Message{To: "a@x.com", Subject: "hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	require.NoError(t, MailHandler(s, 10*time.Second)(context.Background(), body))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "a@x.com", s.sent[0].To)
}

func TestMailHandlerRejectsBadPayload(t *testing.T) {
	s := &flakySender{}
	assert.Error(t, MailHandler(s, time.Second)(context.Background(), []byte("{")))
	assert.Error(t, MailHandler(s, time.Second)(context.Background(), []byte(`{"subject":"x"}`)))
	assert.Empty(t, s.sent)
}

type recordingTranscoder struct{ jobs []TranscodeJob }

func (r *recordingTranscoder) Process(_ context.Context, job TranscodeJob) error {
	r.jobs = append(r.jobs, job)
	return nil
}

func TestTranscodeHandler(t *testing.T) {
	rt := &recordingTranscoder{}
	body, err := json.Marshal(TranscodeJob{JobID: "j1", InputPath: "/tmp/in.mp4", OutputDir: "/out/j1"})
	require.NoError(t, err)

	require.NoError(t, TranscodeHandler(rt)(context.Background(), body))
	require.Len(t, rt.jobs, 1)
	assert.Equal(t, "j1", rt.jobs[0].JobID)

	assert.Error(t, TranscodeHandler(rt)(context.Background(), []byte(`{"job_id":"j2"}`)))
}
