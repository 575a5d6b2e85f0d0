package handlers

import (
	"errors"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/adityahazarika/flash-sale-flow/internal/service"
	"github.com/adityahazarika/flash-sale-flow/internal/web"
	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	reservations *service.ReservationService
	orders       service.OrderStore
}

func NewOrderHandler(reservations *service.ReservationService, orders service.OrderStore) *OrderHandler {
	return &OrderHandler{
		reservations: reservations,
		orders:       orders,
	}
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var request CreateOrderRequest
	if err := c.BodyParser(&request); err != nil {
		return web.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	order, err := h.reservations.Reserve(c.UserContext(), request.UserID, request.ToOrderItems())
	if err != nil {
		var validationErr *domain.ValidationError
		var stockErr *domain.InsufficientStockError
		switch {
		case errors.As(err, &validationErr):
			return web.BadRequestResponse(c, validationErr.Reason, nil)
		case errors.As(err, &stockErr):
			return web.ConflictResponse(c, "INSUFFICIENT_STOCK", stockErr.Error(), map[string]interface{}{
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
		case errors.Is(err, domain.ErrReservationConflict):
			return web.ConflictResponse(c, "RESERVATION_CONFLICT",
				"Reservation lost a concurrent update, please retry", nil)
		default:
			return web.InternalServerErrorResponse(c, "Order creation failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return web.CreatedResponse(c, "Order placed", toOrderResponse(order))
}

func (h *OrderHandler) GetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if orderID == "" {
		return web.BadRequestResponse(c, "Order ID is required", nil)
	}

	order, err := h.orders.Get(c.UserContext(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return web.NotFoundResponse(c, "Order not found")
		}
		return web.InternalServerErrorResponse(c, "Order retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return web.SuccessResponse(c, "Order retrieved successfully", toOrderResponse(order))
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	return web.SuccessResponse(c, "Reservation service is healthy", map[string]interface{}{
		"service": "reservation-service",
		"status":  "healthy",
	})
}
