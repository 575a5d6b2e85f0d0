package handlers

import (
	"errors"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/adityahazarika/flash-sale-flow/internal/service"
	"github.com/adityahazarika/flash-sale-flow/internal/web"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type PaymentHandler struct {
	resolver *service.ResolverService
	log      zerolog.Logger
}

func NewPaymentHandler(resolver *service.ResolverService, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		resolver: resolver,
		log:      log.With().Str("component", "payment-webhook").Logger(),
	}
}

// HandleWebhook receives the gateway's asynchronous payment outcome. The
// gateway retries deliveries, so every path here must be safe to repeat.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	var request WebhookRequest
	if err := c.BodyParser(&request); err != nil {
		return web.BadRequestResponse(c, "Invalid webhook body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}
	if request.OrderID == "" {
		return web.BadRequestResponse(c, "Order ID is required", nil)
	}

	outcome := mapGatewayStatus(request.Status)
	if outcome == domain.OutcomePending {
		// The gateway has not decided yet; the timeout reaper owns the
		// deadline for orders that never leave this state.
		h.log.Info().
			Str("order_id", request.OrderID).
			Str("gateway_status", request.Status).
			Msg("Non-terminal webhook status, deferring to reaper")
		return web.SuccessResponse(c, "Payment still pending, no action taken", map[string]interface{}{
			"order_id": request.OrderID,
		})
	}

	order, err := h.resolver.Resolve(c.UserContext(), request.OrderID, outcome)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyResolved):
			// Late or duplicate delivery; the order already reached a
			// terminal state (possibly Rejected by the reaper, where a
			// refund would be owed — refund execution is out of scope).
			return web.SuccessResponse(c, "Order already resolved", map[string]interface{}{
				"order_id": order.ID,
				"status":   order.Status.String(),
			})
		case errors.Is(err, domain.ErrOrderNotFound):
			return web.NotFoundResponse(c, "Order not found")
		default:
			var validationErr *domain.ValidationError
			if errors.As(err, &validationErr) {
				return web.BadRequestResponse(c, validationErr.Reason, nil)
			}
			h.log.Error().Err(err).
				Str("order_id", request.OrderID).
				Msg("Webhook resolution failed")
			return web.InternalServerErrorResponse(c, "Payment outcome processing failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return web.SuccessResponse(c, "Payment outcome applied", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status.String(),
	})
}

func mapGatewayStatus(status string) domain.PaymentOutcome {
	switch status {
	case "TXN_SUCCESS":
		return domain.OutcomeSuccess
	case "TXN_FAILED":
		return domain.OutcomeFailure
	default:
		return domain.OutcomePending
	}
}
