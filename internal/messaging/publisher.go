package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const fulfillmentRoutingKey = "fulfillment.order.confirmed"

// FulfillmentEvent tells downstream fulfillment that an order's payment
// settled. Delivery is at-least-once; the consumer is idempotent by
// contract, keyed on event_id/order_id.
type FulfillmentEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	OrderID   string    `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher struct {
	client *RabbitMQClient
	log    zerolog.Logger
}

func NewPublisher(client *RabbitMQClient, log zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		log:    log.With().Str("component", "fulfillment-publisher").Logger(),
	}
}

// PublishOrderConfirmed pushes the fulfillment notification, retrying a
// few times on broker errors before giving up.
func (p *Publisher) PublishOrderConfirmed(ctx context.Context, orderID string) error {
	event := FulfillmentEvent{
		EventID:   uuid.New(),
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}

	var lastErr error
	for attempt := 1; attempt <= p.client.config.RetryCount; attempt++ {
		if lastErr = p.publish(event); lastErr == nil {
			p.log.Info().Str("order_id", orderID).Msg("Fulfillment notification published")
			return nil
		}

		p.log.Warn().Err(lastErr).
			Str("order_id", orderID).
			Int("attempt", attempt).
			Msg("Fulfillment publish error")

		if attempt < p.client.config.RetryCount {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second * time.Duration(attempt)):
			}
		}
	}

	return fmt.Errorf("fulfillment publish failed after %d attempts: %w",
		p.client.config.RetryCount, lastErr)
}

func (p *Publisher) publish(event FulfillmentEvent) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("no connection to RabbitMQ")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	return p.client.Channel().Publish(
		p.client.config.Exchange,
		fulfillmentRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID.String(),
			Timestamp:    event.Timestamp,
			Headers: amqp.Table{
				"order_id": event.OrderID,
			},
		},
	)
}
