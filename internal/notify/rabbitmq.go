package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const appID = "storyreel"

// RabbitMQ публикует события в durable-очередь.
type RabbitMQ struct {
	mu        sync.Mutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

var _ Notifier = (*RabbitMQ)(nil)

// DialRabbitMQ открывает соединение и канал и объявляет очередь.
func DialRabbitMQ(url, queueName string, logger *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	n, err := NewRabbitMQ(ch, queueName, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	n.conn = conn
	return n, nil
}

// NewRabbitMQ использует уже открытый канал. Канал закрывает Close.
func NewRabbitMQ(ch *amqp.Channel, queueName string, logger *zap.Logger) (*RabbitMQ, error) {
	_, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare notification queue '%s': %w", queueName, err)
	}
	log := logger.Named("RabbitMQNotifier")
	log.Info("Notification queue declared", zap.String("queue", queueName))
	return &RabbitMQ{channel: ch, queueName: queueName, logger: log}, nil
}

func (n *RabbitMQ) Notify(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.Type, err)
	}

	n.mu.Lock()
	err = n.channel.PublishWithContext(ctx,
		"",
		n.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    ev.Timestamp,
			AppId:        appID,
			MessageId:    ev.ID,
			Type:         string(ev.Type),
		},
	)
	n.mu.Unlock()
	if err != nil {
		n.logger.Error("Failed to publish event", zap.String("type", string(ev.Type)), zap.Error(err))
		return fmt.Errorf("failed to publish event %s: %w", ev.Type, err)
	}

	n.logger.Debug("Event published",
		zap.String("type", string(ev.Type)),
		zap.String("project_id", ev.ProjectID),
		zap.String("job_id", ev.JobID),
	)
	return nil
}

// Close закрывает канал и соединение, если оно было открыто через DialRabbitMQ.
func (n *RabbitMQ) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.channel.Close(); err != nil {
		n.logger.Warn("Error closing rabbitmq channel", zap.Error(err))
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
