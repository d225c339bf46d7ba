package common

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Exchange string

type Queue string

type BindingKey string

type MessageProducer interface {
	Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error
}

type MessageConsumer interface {
	Consume(queue Queue, consumer string) (<-chan amqp.Delivery, error)
}

const (
	EventExchange Exchange = "bloglist_events"

	UserCreatedKey BindingKey = "user.created"
	BlogCreatedKey BindingKey = "blog.created"
	BlogDeletedKey BindingKey = "blog.deleted"
	BlogEventsKey  BindingKey = "blog.*"

	OwnedBlogsQueue Queue = "owned_blogs_reconcile_queue"
)

// UserEvent is the body of user.* messages.
type UserEvent struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// BlogEvent is the body of blog.* messages. UserID is nil for unowned blogs.
type BlogEvent struct {
	BlogID uuid.UUID  `json:"blog_id"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

type MessageBroker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewMessageBroker(URI string) (*MessageBroker, error) {
	conn, ch, err := connectAMQP(URI)
	if err != nil {
		return nil, err
	}

	return &MessageBroker{
		conn: conn,
		ch:   ch,
	}, nil
}

// AMQPURI builds the broker URI from its parts.
func AMQPURI(host, port, user, password string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", user, password, host, port)
}

func connectAMQP(URI string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(URI)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	return conn, ch, nil
}

// Close closes the connection and channel of the message broker.
func (mb *MessageBroker) Close() error {
	err := mb.ch.Close()
	if err != nil {
		return err
	}

	return mb.conn.Close()
}

// SetupEventExchange declares the topic exchange and the queue the owned
// blogs reconciler reads from.
func SetupEventExchange(mb *MessageBroker) error {
	err := mb.ch.ExchangeDeclare(string(EventExchange), "topic", true, false, false, false, nil)
	if err != nil {
		return err
	}

	_, err = mb.ch.QueueDeclare(string(OwnedBlogsQueue), true, false, false, false, nil)
	if err != nil {
		return err
	}

	return mb.ch.QueueBind(string(OwnedBlogsQueue), string(BlogEventsKey), string(EventExchange), false, nil)
}

func (mb *MessageBroker) Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error {
	err := mb.ch.PublishWithContext(ctx, string(exchange), string(key), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         msg,
	})
	if err != nil {
		return fmt.Errorf("could not publish message: %w", err)
	}

	return nil
}

func (mb *MessageBroker) Consume(queue Queue, consumer string) (<-chan amqp.Delivery, error) {
	msgs, err := mb.ch.Consume(string(queue), consumer, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("could not consume message: %w", err)
	}

	return msgs, nil
}

// NoopProducer drops every message. Used when no broker is configured.
type NoopProducer struct{}

func (NoopProducer) Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error {
	return ctx.Err()
}

var (
	_ MessageProducer = (*MessageBroker)(nil)
	_ MessageConsumer = (*MessageBroker)(nil)
	_ MessageProducer = NoopProducer{}
)
