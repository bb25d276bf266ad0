package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationPublisher publishes notification events to a durable queue
type NotificationPublisher struct {
	conn     *RabbitMQConnection
	queue    string
	declared bool
	// amqp channels are not safe for concurrent publishes
	mu sync.Mutex
}

func NewNotificationPublisher(conn *RabbitMQConnection, queue string) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, queue: queue}
}

func (p *NotificationPublisher) Publish(ctx context.Context, evt NotificationEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared {
		_, err := p.conn.Channel.QueueDeclare(
			p.queue, // queue name
			true,    // durable
			false,   // delete when unused
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue: %w", err)
		}
		p.declared = true
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification event: %w", err)
	}
	return nil
}
