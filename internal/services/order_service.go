package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/bistro/internal/models"
)

const defaultPageSize = 20

const (
	DeliveryMethodDelivery = "delivery"
	DeliveryMethodPickup   = "pickup"
	PaymentMethodCash      = "cash"
)

// OrderService owns the order lifecycle: checkout, status updates and the
// reward issuance that follows delivery.
type OrderService struct {
	db          *gorm.DB
	issuer      *RewardIssuer
	notifier    Notifier
	alerter     AdminAlerter
	deliveryFee decimal.Decimal
	currency    string
	now         func() time.Time
}

func NewOrderService(db *gorm.DB, issuer *RewardIssuer, notifier Notifier, alerter AdminAlerter, deliveryFee decimal.Decimal, currency string) *OrderService {
	return &OrderService{
		db:          db,
		issuer:      issuer,
		notifier:    notifier,
		alerter:     alerter,
		deliveryFee: deliveryFee,
		currency:    currency,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for status timestamps.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// StatusUpdateResult is returned by UpdateOrderStatus.
type StatusUpdateResult struct {
	Order   *models.Order   `json:"order"`
	Changed bool            `json:"changed"`
	Reward  *IssuanceResult `json:"reward,omitempty"`
	// RewardError is set when the status change committed but issuance failed.
	// Reconciliation picks such orders up later.
	RewardError error `json:"-"`
}

// UpdateOrderStatus validates and applies a status change, issues the loyalty
// reward when the order becomes delivered and notifies the owner.
//
// Reward failures never fail the status update; they are logged, alerted and
// reported in the result.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint, rawStatus, cancelReason string) (*StatusUpdateResult, error) {
	to, err := ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := OrderStatus(order.Status)
	result := &StatusUpdateResult{Order: order}

	err = ApplyTransition(order, to, cancelReason, s.now())
	switch {
	case errors.Is(err, errNoChange):
		log.Info().Uint("order_id", order.ID).Stringer("status", to).Msg("order: terminal status re-requested, nothing to change")
	case err != nil:
		log.Warn().Err(err).Uint("order_id", order.ID).Stringer("current_status", from).Stringer("new_status", to).Msg("order: status transition rejected")
		return nil, err
	default:
		if err := s.persistTransition(ctx, order, to); err != nil {
			return nil, err
		}
		result.Changed = true
		log.Info().Uint("order_id", order.ID).Stringer("old_status", from).Stringer("new_status", to).Msg("order: status updated")
	}

	if to == StatusDelivered {
		reward, err := s.issuer.IssueRewardIfDue(ctx, order.ID)
		if err != nil {
			result.RewardError = err
			s.reportRewardFailure(order, err)
		} else {
			result.Reward = &reward
			if reward.Issued() {
				order.Rewarded = true
			}
		}
	}

	if result.Changed {
		s.notifyStatus(ctx, order, to)
	}
	if result.Reward != nil {
		notifyReward(ctx, s.notifier, *order, *result.Reward)
	}

	return result, nil
}

// persistTransition writes the status columns unless another request already
// moved the order into a terminal status.
func (s *OrderService) persistTransition(ctx context.Context, order *models.Order, to OrderStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", order.ID, []string{StatusDelivered.String(), StatusCancelled.String()}).
		Updates(transitionUpdates(order, to))
	if res.Error != nil {
		return fmt.Errorf("%w: update status of order %d: %w", ErrPersistence, order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).Count(&exists).Error; err != nil {
			return fmt.Errorf("%w: recheck order %d: %w", ErrPersistence, order.ID, err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %d", ErrOrderNotFound, order.ID)
		}
		return fmt.Errorf("%w: order %d changed concurrently", ErrOrderFinalized, order.ID)
	}
	return nil
}

func (s *OrderService) reportRewardFailure(order *models.Order, err error) {
	log.Error().Err(err).
		Uint("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Msg("order: reward issuance failed, reconciliation required")

	if s.alerter == nil {
		return
	}
	if alertErr := s.alerter.AlertRewardFailure(order.ID, order.OrderNumber, err); alertErr != nil {
		log.Warn().Err(alertErr).Uint("order_id", order.ID).Msg("order: reward failure alert not delivered")
	}
}

func (s *OrderService) notifyStatus(ctx context.Context, order *models.Order, to OrderStatus) {
	if s.notifier == nil || order.UserID == nil {
		return
	}

	message := fmt.Sprintf("Order %s: %s", order.OrderNumber, to.Label())
	if to == StatusCancelled && order.CancelMessage != "" {
		message += ". Reason: " + order.CancelMessage
	}
	if err := s.notifier.Notify(ctx, *order.UserID, "Order "+to.Label(), message, models.NotificationKindOrderStatus, orderLink(order.ID)); err != nil {
		log.Warn().Err(err).Uint("order_id", order.ID).Msg("order: status notification failed")
	}
}

// IssueReward retries reward issuance for a single order.
func (s *OrderService) IssueReward(ctx context.Context, orderID uint) (IssuanceResult, error) {
	result, err := s.issuer.IssueRewardIfDue(ctx, orderID)
	if err != nil {
		return result, err
	}
	if result.Issued() {
		order, getErr := s.GetOrder(ctx, orderID)
		if getErr == nil {
			notifyReward(ctx, s.notifier, *order, result)
		}
	}
	return result, nil
}

// GetOrder loads an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Items.Choices").
		First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: load order %d: %w", ErrPersistence, orderID, err)
	}
	return &order, nil
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	UserID *uuid.UUID
	Status string
	Limit  int
	Offset int
}

// ListOrders returns a page of orders, newest first, and the total count.
func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		status, err := ParseOrderStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("status = ?", status.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items.Choices").
		Order("created_at desc").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// CheckoutItem is one requested line item.
type CheckoutItem struct {
	ProductRef  string
	ProductName string
	SizeLabel   string
	Quantity    int
	UnitPrice   decimal.Decimal
	Choices     []CheckoutChoice
}

// CheckoutChoice is one selected option of a line item.
type CheckoutChoice struct {
	Group      string
	Value      string
	PriceDelta decimal.Decimal
}

// CheckoutInput is everything needed to place an order.
type CheckoutInput struct {
	UserID         *uuid.UUID
	CustomerName   string
	CustomerPhone  string
	DeliveryMethod string
	AddressLine    string
	Apartment      string
	City           string
	District       string
	PaymentMethod  string
	Notes          string
	Items          []CheckoutItem
}

// CreateOrder places a pending order. Guests pass a nil UserID.
func (s *OrderService) CreateOrder(ctx context.Context, in CheckoutInput) (*models.Order, error) {
	if err := validateCheckout(&in); err != nil {
		return nil, err
	}

	order := models.Order{
		UserID:         in.UserID,
		Status:         StatusPending.String(),
		CustomerName:   in.CustomerName,
		CustomerPhone:  in.CustomerPhone,
		DeliveryMethod: in.DeliveryMethod,
		PaymentMethod:  in.PaymentMethod,
		Currency:       s.currency,
		Notes:          in.Notes,
		DeliveryFee:    decimal.Zero,
	}

	if in.DeliveryMethod == DeliveryMethodDelivery {
		order.AddressLine = in.AddressLine
		order.Apartment = in.Apartment
		order.City = in.City
		order.District = in.District
		order.DeliveryFee = s.deliveryFee
	}

	subtotal := decimal.Zero
	for _, it := range in.Items {
		unit := it.UnitPrice
		item := models.OrderItem{
			ProductRef:  it.ProductRef,
			ProductName: it.ProductName,
			SizeLabel:   it.SizeLabel,
			Quantity:    it.Quantity,
			UnitPrice:   unit,
		}
		for _, ch := range it.Choices {
			unit = unit.Add(ch.PriceDelta)
			item.Choices = append(item.Choices, models.OrderItemChoice{
				Group:      ch.Group,
				Value:      ch.Value,
				PriceDelta: ch.PriceDelta,
			})
		}
		item.LineTotal = unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(item.LineTotal)
		order.Items = append(order.Items, item)
	}

	order.Subtotal = subtotal
	order.TotalAmount = subtotal.Add(order.DeliveryFee)
	order.OrderNumber = generateOrderNumber()

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("%w: create order: %w", ErrPersistence, err)
	}

	log.Info().Uint("order_id", order.ID).Str("order_number", order.OrderNumber).Stringer("total", order.TotalAmount).Msg("order: created")
	return &order, nil
}

func validateCheckout(in *CheckoutInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}

	in.DeliveryMethod = strings.TrimSpace(in.DeliveryMethod)
	switch in.DeliveryMethod {
	case DeliveryMethodPickup:
	case DeliveryMethodDelivery:
		if strings.TrimSpace(in.AddressLine) == "" {
			return fmt.Errorf("%w: delivery address is required", ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("%w: unknown delivery method %q", ErrInvalidOrder, in.DeliveryMethod)
	}

	if in.PaymentMethod == "" {
		in.PaymentMethod = PaymentMethodCash
	}
	if in.PaymentMethod != PaymentMethodCash {
		return fmt.Errorf("%w: only cash payment is accepted", ErrInvalidOrder)
	}

	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for %q must be positive", ErrInvalidOrder, it.ProductName)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: unit price for %q cannot be negative", ErrInvalidOrder, it.ProductName)
		}
	}
	return nil
}

func generateOrderNumber() string {
	return "#" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
