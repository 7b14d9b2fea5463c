package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/config"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const confirmTimeout = 5 * time.Second

// MessagePublisher announces published snapshots on a RabbitMQ topic exchange.
type MessagePublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewMessagePublisher connects and declares the exchange, queue and binding.
func NewMessagePublisher(cfg *config.RabbitMQConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		mp.config.User, mp.config.Password, mp.config.Host, mp.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	// Declare exchange
	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare queue
	_, err = ch.QueueDeclare(
		mp.config.Queue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": 86400000, // 24 hours
			"x-max-length":  10000,
		},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange
	if err := ch.QueueBind(
		mp.config.Queue,      // queue name
		mp.config.RoutingKey, // routing key
		mp.config.Exchange,   // exchange
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	mp.conn = conn
	mp.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("queue", mp.config.Queue),
	)

	return nil
}

// PublishSnapshot publishes event and waits for the broker to confirm it.
func (mp *MessagePublisher) PublishSnapshot(ctx context.Context, event models.SnapshotEvent) error {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if mp.channel == nil {
		return errors.New("channel is not initialized")
	}

	// Serialize event to JSON
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot event: %w", err)
	}

	confirmation, err := mp.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		mp.config.Exchange,   // exchange
		mp.config.RoutingKey, // routing key
		true,                 // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    event.ImportID.String(),
			Type:         "snapshot.published",
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	if confirmation == nil {
		return errors.New("channel is not in confirm mode")
	}

	// Wait for confirmation with timeout
	waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	acked, err := confirmation.WaitContext(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return errors.New("timeout waiting for publish confirmation")
		}
		return err
	}
	if !acked {
		return errors.New("message was not acknowledged by broker")
	}

	logger.Log.Debug("Published snapshot event to RabbitMQ",
		zap.String("importId", event.ImportID.String()),
		zap.String("routingKey", mp.config.RoutingKey),
	)

	return nil
}

// Close closes the channel and connection.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if mp.conn != nil {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %w", errors.Join(errs...))
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open. A nil publisher is unhealthy.
func (mp *MessagePublisher) IsHealthy() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil
}
