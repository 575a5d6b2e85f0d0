package handlers

import (
	"context"
	"errors"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/adityahazarika/flash-sale-flow/internal/web"
	"github.com/gofiber/fiber/v2"
)

// InventoryAdmin is the thin read/restock surface exposed for operations.
// Restocking is the only path that changes a product's total unit count.
type InventoryAdmin interface {
	Get(ctx context.Context, productID string) (domain.InventoryItem, error)
	Restock(ctx context.Context, productID string, qty int, price float64) error
}

type InventoryHandler struct {
	inventory InventoryAdmin
}

func NewInventoryHandler(inventory InventoryAdmin) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	productID := c.Params("product_id")

	item, err := h.inventory.Get(c.UserContext(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return web.NotFoundResponse(c, "Product not found")
		}
		return web.InternalServerErrorResponse(c, "Inventory retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return web.SuccessResponse(c, "Inventory retrieved successfully", InventoryResponse{
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Reserved:  item.Reserved,
		Price:     item.Price,
	})
}

func (h *InventoryHandler) Restock(c *fiber.Ctx) error {
	productID := c.Params("product_id")

	var request RestockRequest
	if err := c.BodyParser(&request); err != nil {
		return web.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}
	if request.Quantity <= 0 {
		return web.BadRequestResponse(c, "Quantity must be positive", nil)
	}
	if request.Price < 0 {
		return web.BadRequestResponse(c, "Price must be non-negative", nil)
	}

	if err := h.inventory.Restock(c.UserContext(), productID, request.Quantity, request.Price); err != nil {
		return web.InternalServerErrorResponse(c, "Restock failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	item, err := h.inventory.Get(c.UserContext(), productID)
	if err != nil {
		return web.InternalServerErrorResponse(c, "Restock readback failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return web.SuccessResponse(c, "Inventory restocked", InventoryResponse{
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Reserved:  item.Reserved,
		Price:     item.Price,
	})
}
