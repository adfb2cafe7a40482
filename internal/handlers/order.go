package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/bistro/internal/middleware"
	"github.com/example/bistro/internal/services"
	"github.com/example/bistro/internal/utils"
)

// OrderHandler manages customer-facing order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderChoiceRequest struct {
	Group      string          `json:"group"`
	Value      string          `json:"value"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

type orderProductRequest struct {
	ProductRef  string               `json:"product_id"`
	ProductName string               `json:"product_name"`
	SizeLabel   string               `json:"size_label"`
	Quantity    int                  `json:"quantity"`
	UnitPrice   decimal.Decimal      `json:"unit_price"`
	Choices     []orderChoiceRequest `json:"choices"`
}

type deliveryAddressRequest struct {
	AddressLine string `json:"address_line"`
	Apartment   string `json:"apartment"`
	City        string `json:"city"`
	District    string `json:"district"`
}

type createOrderRequest struct {
	CustomerName   string                 `json:"customer_name"`
	CustomerPhone  string                 `json:"customer_phone"`
	DeliveryMethod string                 `json:"delivery_method"`
	Address        deliveryAddressRequest `json:"address"`
	PaymentMethod  string                 `json:"payment_method"`
	Products       []orderProductRequest  `json:"products"`
	Notes          string                 `json:"notes"`
}

func (r createOrderRequest) toInput() services.CheckoutInput {
	in := services.CheckoutInput{
		CustomerName:   strings.TrimSpace(r.CustomerName),
		CustomerPhone:  strings.TrimSpace(r.CustomerPhone),
		DeliveryMethod: r.DeliveryMethod,
		AddressLine:    strings.TrimSpace(r.Address.AddressLine),
		Apartment:      r.Address.Apartment,
		City:           r.Address.City,
		District:       r.Address.District,
		PaymentMethod:  r.PaymentMethod,
		Notes:          r.Notes,
	}

	for _, p := range r.Products {
		item := services.CheckoutItem{
			ProductRef:  p.ProductRef,
			ProductName: p.ProductName,
			SizeLabel:   p.SizeLabel,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
		}
		for _, ch := range p.Choices {
			item.Choices = append(item.Choices, services.CheckoutChoice{
				Group:      ch.Group,
				Value:      ch.Value,
				PriceDelta: ch.PriceDelta,
			})
		}
		in.Items = append(in.Items, item)
	}
	return in
}

// CreateOrder places an order for the signed-in user or a guest.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	in := req.toInput()
	if userID, ok := middleware.GetCurrentUserID(c); ok {
		in.UserID = &userID
	}

	order, err := h.orders.CreateOrder(c.UserContext(), in)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"placed_at":    order.CreatedAt,
			"subtotal":     order.Subtotal,
			"delivery_fee": order.DeliveryFee,
			"total":        order.TotalAmount,
			"currency":     order.Currency,
		},
	})
}

// ListOrders returns orders for the authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListOrders(c.UserContext(), services.OrderFilter{
		UserID: &userID,
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

// GetOrder returns a single order owned by the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseOrderID(c)
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrder(c.UserContext(), id)
	if err != nil {
		return serviceError(err)
	}
	if order.UserID == nil || *order.UserID != userID {
		return serviceError(services.ErrOrderNotFound)
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

func parseOrderID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}
