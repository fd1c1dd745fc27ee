package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/course-marketplace/internal/mail"
)

// Publisher sends messages to RabbitMQ.  It dials per publish, which keeps
// it free of connection state; traffic here is a handful of mails and jobs.
// Errors are logged and returned so callers can choose to ignore them.
type Publisher struct {
	url string
	log zerolog.Logger
}

func NewPublisher(url string, log zerolog.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// Send queues m on the outbound mail queue.
func (p *Publisher) Send(ctx context.Context, m mail.Message) error {
	return p.Publish(ctx, MailQueue, m)
}

// EnqueueTranscode queues an HLS job.
func (p *Publisher) EnqueueTranscode(ctx context.Context, job TranscodeJob) error {
	return p.Publish(ctx, TranscodeQueue, job)
}

// Publish marshals v as JSON and publishes it persistently to queue.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("marshal message failed")
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error().Err(err).Msg("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error().Err(err).Msg("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// idempotent; durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("publish failed")
		return err
	}
	return nil
}
