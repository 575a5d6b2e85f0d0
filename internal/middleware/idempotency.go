package middleware

import (
	"fmt"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/web"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// WebhookDedupe suppresses duplicate webhook deliveries using a redis
// SetNX seen-check. It is an optimization only and fails open: the
// resolver's conditional status update is the real idempotency gate.
type WebhookDedupe struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

func NewWebhookDedupe(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *WebhookDedupe {
	return &WebhookDedupe{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "webhook-dedupe").Logger(),
	}
}

func (d *WebhookDedupe) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		deliveryID := c.Get("X-Delivery-ID")
		if deliveryID == "" {
			return c.Next()
		}

		key := fmt.Sprintf("webhook:delivery:%s", deliveryID)
		fresh, err := d.rdb.SetNX(c.UserContext(), key, "1", d.ttl).Result()
		if err != nil {
			d.log.Warn().Err(err).Msg("Dedupe cache unavailable, passing delivery through")
			return c.Next()
		}
		if !fresh {
			return web.SuccessResponse(c, "Duplicate webhook delivery ignored", map[string]interface{}{
				"delivery_id": deliveryID,
			})
		}
		return c.Next()
	}
}
