package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const defaultQueue = "yamdb.mail"

// publisher is the subset of *amqp.Channel the mailer needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// envelope is the JSON document placed on the queue.
type envelope struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// AMQPMailer hands messages to a mail worker through a durable RabbitMQ
// queue. A publish counts as delivered once the broker has accepted it.
type AMQPMailer struct {
	conn  *amqp.Connection
	ch    publisher
	queue string
	now   func() time.Time
}

// DialAMQP connects to url and declares queue (durable).
func DialAMQP(url, queue string) (*AMQPMailer, error) {
	if url == "" {
		return nil, errors.New("amqp mailer: url is required")
	}
	if queue == "" {
		queue = defaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queue, err)
	}
	return &AMQPMailer{conn: conn, ch: ch, queue: queue, now: time.Now}, nil
}

func (m *AMQPMailer) Send(ctx context.Context, msg ports.Message) error {
	body, err := json.Marshal(envelope{From: msg.From, To: msg.To, Subject: msg.Subject, Body: msg.Body})
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    m.now().UTC(),
		Type:         "mail.confirmation_code",
		Body:         body,
	}
	if err := m.ch.PublishWithContext(ctx, "", m.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish to %s: %w", m.queue, err)
	}
	return nil
}

// Close releases the broker connection.
func (m *AMQPMailer) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
