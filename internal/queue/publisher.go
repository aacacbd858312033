package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names. One queue per payload type, declared durable on first use.
const (
	QueueRSVPConfirmed    = "rsvp.confirmed"
	QueuePaymentCompleted = "payment.completed"
	QueueRSVPDenied       = "rsvp.denied"
)

// Publisher delivers messages to RabbitMQ. Publishing is strictly
// best-effort from the request path's point of view: errors are logged and
// returned, and callers ignore them rather than fail a request whose
// database work already committed. An empty URL disables publishing.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishRSVPConfirmed publishes to the rsvp.confirmed queue.
func (p *Publisher) PublishRSVPConfirmed(ctx context.Context, ev RSVPConfirmedEvent) error {
	return p.publish(ctx, QueueRSVPConfirmed, ev)
}

// PublishPaymentCompleted publishes to the payment.completed queue.
func (p *Publisher) PublishPaymentCompleted(ctx context.Context, ev PaymentCompletedEvent) error {
	return p.publish(ctx, QueuePaymentCompleted, ev)
}

// PublishRSVPDenied publishes to the rsvp.denied queue.
func (p *Publisher) PublishRSVPDenied(ctx context.Context, ev RSVPDeniedEvent) error {
	return p.publish(ctx, QueueRSVPDenied, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, v interface{}) error {
	if p.url == "" {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Declare idempotently; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("rabbitmq: marshal payload failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
