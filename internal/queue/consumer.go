package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/course-marketplace/internal/mail"
	"github.com/iliyamo/course-marketplace/internal/metrics"
)

// HandlerFunc processes one delivery body.  A returned error rejects the
// message without requeue so a poison message cannot spin the consumer.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer reads one durable queue and hands each delivery to a handler.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handle   HandlerFunc
	log      zerolog.Logger
}

func NewConsumer(url, queue string, prefetch int, handle HandlerFunc, log zerolog.Logger) *Consumer {
	if prefetch <= 0 {
		prefetch = 10
	}
	return &Consumer{url: url, queue: queue, prefetch: prefetch, handle: handle,
		log: log.With().Str("queue", queue).Logger()}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff whenever the connection or channel drops.
func (c *Consumer) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry forever

	for {
		err := backoff.Retry(func() error {
			conn, err := amqp.Dial(c.url)
			if err != nil {
				c.log.Warn().Err(err).Msg("dial broker failed, retrying")
				return err
			}
			bo.Reset() // reset after successful connect
			return c.consume(ctx, conn)
		}, backoff.WithContext(bo, ctx))

		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn().Err(err).Msg("consume loop ended, reconnecting")
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info().Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			return backoff.Permanent(ctx.Err())
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			err := c.handle(ctx, d.Body)
			metrics.QueueMessage(c.queue, err)
			if err != nil {
				c.log.Error().Err(err).Msg("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// MailSender delivers a rendered message.
type MailSender interface {
	Send(ctx context.Context, m mail.Message) error
}

// MailHandler delivers queued mail, retrying transient SMTP failures with
// exponential backoff for up to maxElapsed.
func MailHandler(s MailSender, maxElapsed time.Duration) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var m mail.Message
		if err := json.Unmarshal(body, &m); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if m.To == "" {
			return errors.New("mail without recipient")
		}
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 500 * time.Millisecond
		bo.MaxElapsedTime = maxElapsed
		return backoff.Retry(func() error { return s.Send(ctx, m) }, backoff.WithContext(bo, ctx))
	}
}

// Transcoder processes an HLS job to completion.
type Transcoder interface {
	Process(ctx context.Context, job TranscodeJob) error
}

// TranscodeHandler decodes a TranscodeJob and runs it.
func TranscodeHandler(t Transcoder) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var job TranscodeJob
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if job.JobID == "" || job.InputPath == "" {
			return errors.New("incomplete transcode job")
		}
		return t.Process(ctx, job)
	}
}
