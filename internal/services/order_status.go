package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/bistro/internal/models"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// AllStatuses lists the enumeration in fulfillment order.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

var statusLabels = map[OrderStatus]string{
	StatusPending:        "Pending",
	StatusConfirmed:      "Confirmed",
	StatusPreparing:      "Being prepared",
	StatusReady:          "Ready for pickup",
	StatusOutForDelivery: "Out for delivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

func (s OrderStatus) String() string {
	return string(s)
}

// Label returns the customer-facing name of the status.
func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Terminal reports whether no further transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// TimestampColumn names the orders column stamped when entering s.
// Pending has none: it is covered by created_at.
func (s OrderStatus) TimestampColumn() string {
	switch s {
	case StatusConfirmed:
		return "confirmed_at"
	case StatusPreparing:
		return "preparing_at"
	case StatusReady:
		return "ready_at"
	case StatusOutForDelivery:
		return "out_for_delivery_at"
	case StatusDelivered:
		return "delivered_at"
	case StatusCancelled:
		return "cancelled_at"
	}
	return ""
}

// ParseOrderStatus validates a raw status value against the enumeration.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.TrimSpace(raw))
	if _, ok := statusLabels[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// ApplyTransition moves order to status `to` and stamps the matching timestamp.
//
// Any status may be requested from any non-terminal status; skipping steps is
// allowed. Re-applying the current status refreshes its timestamp. Terminal
// orders never change: a different target returns ErrOrderFinalized and the
// same target returns errNoChange. The cancel reason is recorded only for
// cancellations and only when supplied. On error the order is left untouched.
func ApplyTransition(order *models.Order, to OrderStatus, cancelReason string, now time.Time) error {
	if _, ok := statusLabels[to]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	current := OrderStatus(order.Status)
	if current.Terminal() {
		if current == to {
			return errNoChange
		}
		return fmt.Errorf("%w: %s", ErrOrderFinalized, current)
	}

	order.Status = to.String()
	stamp := now
	switch to {
	case StatusConfirmed:
		order.ConfirmedAt = &stamp
	case StatusPreparing:
		order.PreparingAt = &stamp
	case StatusReady:
		order.ReadyAt = &stamp
	case StatusOutForDelivery:
		order.OutForDeliveryAt = &stamp
	case StatusDelivered:
		order.DeliveredAt = &stamp
	case StatusCancelled:
		order.CancelledAt = &stamp
		if reason := strings.TrimSpace(cancelReason); reason != "" {
			order.CancelMessage = reason
		}
	}

	return nil
}

// transitionUpdates is the column set written for a transition applied to order.
func transitionUpdates(order *models.Order, to OrderStatus) map[string]any {
	updates := map[string]any{"status": to.String()}
	switch to {
	case StatusConfirmed:
		updates[to.TimestampColumn()] = order.ConfirmedAt
	case StatusPreparing:
		updates[to.TimestampColumn()] = order.PreparingAt
	case StatusReady:
		updates[to.TimestampColumn()] = order.ReadyAt
	case StatusOutForDelivery:
		updates[to.TimestampColumn()] = order.OutForDeliveryAt
	case StatusDelivered:
		updates[to.TimestampColumn()] = order.DeliveredAt
	case StatusCancelled:
		updates[to.TimestampColumn()] = order.CancelledAt
		if order.CancelMessage != "" {
			updates["cancel_message"] = order.CancelMessage
		}
	}
	return updates
}
