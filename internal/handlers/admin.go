package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bistro/internal/services"
	"github.com/example/bistro/internal/utils"
)

// AdminHandler manages admin-only order and loyalty endpoints.
type AdminHandler struct {
	orders     *services.OrderService
	reconciler *services.Reconciler
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(orders *services.OrderService, reconciler *services.Reconciler) *AdminHandler {
	return &AdminHandler{orders: orders, reconciler: reconciler}
}

// ListAllOrders returns all orders with pagination and an optional status filter.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListOrders(c.UserContext(), services.OrderFilter{
		Status: c.Query("status"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	})
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

type updateStatusRequest struct {
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason"`
}

// UpdateOrderStatus moves an order to a new status and issues the loyalty
// reward on delivery.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := parseOrderID(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status := strings.TrimSpace(req.Status)
	if status == services.StatusCancelled.String() && strings.TrimSpace(req.CancelReason) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "cancel_reason is required when cancelling an order")
	}

	result, err := h.orders.UpdateOrderStatus(c.UserContext(), id, status, req.CancelReason)
	if err != nil {
		return serviceError(err)
	}

	data := fiber.Map{
		"order":   result.Order,
		"changed": result.Changed,
	}
	if result.Reward != nil {
		data["reward"] = result.Reward
	}
	if result.RewardError != nil {
		data["reward_error"] = result.RewardError.Error()
	}

	return c.JSON(fiber.Map{"success": true, "data": data})
}

// IssueReward retries reward issuance for one order.
func (h *AdminHandler) IssueReward(c *fiber.Ctx) error {
	id, err := parseOrderID(c)
	if err != nil {
		return err
	}

	result, err := h.orders.IssueReward(c.UserContext(), id)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

// Reconcile runs the retroactive loyalty reconciliation.
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	summary, err := h.reconciler.Run(c.UserContext())
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": summary})
}
