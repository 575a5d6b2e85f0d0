package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

type RabbitMQClient struct {
	config     *RabbitMQConfig
	log        zerolog.Logger
	connection *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	isClosing  bool
}

func NewRabbitMQClient(config *RabbitMQConfig, log zerolog.Logger) *RabbitMQClient {
	return &RabbitMQClient{
		config: config,
		log:    log.With().Str("component", "rabbitmq").Logger(),
	}
}

func (r *RabbitMQClient) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for i := 0; i < r.config.RetryCount; i++ {
		r.connection, err = amqp.Dial(r.config.ConnectionURL())
		if err != nil {
			r.log.Warn().Err(err).
				Int("attempt", i+1).
				Int("max_attempts", r.config.RetryCount).
				Msg("RabbitMQ connection error")
			if i < r.config.RetryCount-1 {
				time.Sleep(r.config.RetryDelay)
				continue
			}
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}

		r.channel, err = r.connection.Channel()
		if err != nil {
			r.connection.Close()
			return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
		}

		err = r.channel.ExchangeDeclare(
			r.config.Exchange, // name
			"topic",           // type
			true,              // durable
			false,             // auto-deleted
			false,             // internal
			false,             // no-wait
			nil,               // arguments
		)
		if err != nil {
			r.channel.Close()
			r.connection.Close()
			return fmt.Errorf("failed to declare exchange: %w", err)
		}

		r.log.Info().Str("host", r.config.Host).Msg("Connected to RabbitMQ")

		go r.handleReconnection(r.connection)

		return nil
	}

	return err
}

func (r *RabbitMQClient) handleReconnection(conn *amqp.Connection) {
	notifyClose := make(chan *amqp.Error)
	conn.NotifyClose(notifyClose)

	if err, ok := <-notifyClose; ok {
		if r.closing() {
			return
		}
		r.log.Warn().Err(err).Msg("RabbitMQ connection lost, reconnecting")
		time.Sleep(time.Second * 2)
		if reconnectErr := r.Connect(); reconnectErr != nil {
			r.log.Error().Err(reconnectErr).Msg("RabbitMQ reconnect failed")
		}
	}
}

func (r *RabbitMQClient) closing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isClosing
}

func (r *RabbitMQClient) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

func (r *RabbitMQClient) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connection != nil && !r.connection.IsClosed()
}

func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isClosing = true
	if r.channel != nil {
		r.channel.Close()
	}
	if r.connection != nil {
		return r.connection.Close()
	}
	return nil
}
