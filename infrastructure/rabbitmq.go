package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"scorecard-engine/application"
	"scorecard-engine/domain"
)

var _ application.SummaryQueue = (*RabbitMQ)(nil)

// RabbitMQ publishes and consumes summary jobs on one durable queue.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	log     *logrus.Entry
}

func NewRabbitMQ(url, queueName string, log *logrus.Entry) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	log.WithField("queue", q.Name).Info("✅ Connected to RabbitMQ and declared queue")
	return &RabbitMQ{conn: conn, channel: ch, queue: q, log: log}, nil
}

func (r *RabbitMQ) PublishSummaryJob(ctx context.Context, job domain.SummaryJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.channel.PublishWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// ConsumeSummaryJobs delivers jobs to handler until ctx is done. Malformed
// messages are dropped; a handler error leaves the failure on the summary
// record and the message is acknowledged, so jobs are never redelivered.
func (r *RabbitMQ) ConsumeSummaryJobs(ctx context.Context, handler func(context.Context, domain.SummaryJob) error) error {
	msgs, err := r.channel.ConsumeWithContext(
		ctx,
		r.queue.Name,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			var job domain.SummaryJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				r.log.WithError(err).Warn("invalid summary job format")
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(ctx, job); err != nil {
				r.log.WithError(err).WithField("summary_id", job.SummaryID).Warn("summary job failed")
			}
			_ = d.Ack(false)
		}
	}()
	return nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		r.log.WithError(err).Warn("failed to close channel")
	}
	return r.conn.Close()
}
