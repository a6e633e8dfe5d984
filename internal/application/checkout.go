package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/gateway"
	"github.com/feriapapel/orders-service/internal/logger"
	"github.com/feriapapel/orders-service/internal/repository"
)

const (
	MethodWebpay = "webpay"
	MethodKhipu  = "khipu"
)

type CheckoutRequest struct {
	Items         []domain.Item   `json:"items"`
	Customer      domain.Customer `json:"customer"`
	ShippingCents int64           `json:"shipping_cents"`
	PaymentMethod string          `json:"payment_method"`
}

type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// CheckoutService creates the pending order and starts the gateway redirect
// flow. The reconciliation service finishes the job when the buyer comes back.
// webhookBase is the prefix of the per-gateway notification endpoint, so the
// gateway's server-to-server POST lands on /payment/webhook/<method> and not
// on the browser return route.
type CheckoutService struct {
	repo        repository.OrderRepo
	gateways    map[string]gateway.Client
	returnURL   string
	webhookBase string
}

func NewCheckoutService(repo repository.OrderRepo, gateways map[string]gateway.Client, returnURL, webhookBase string) *CheckoutService {
	return &CheckoutService{repo: repo, gateways: gateways, returnURL: returnURL, webhookBase: webhookBase}
}

func (s *CheckoutService) Start(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	gw, ok := s.gateways[req.PaymentMethod]
	if !ok {
		return nil, fmt.Errorf("unsupported payment method %q", req.PaymentMethod)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("empty cart")
	}

	var subtotal int64
	for _, it := range req.Items {
		if it.Quantity <= 0 || it.UnitCents < 0 {
			return nil, fmt.Errorf("invalid line item %q", it.ProductID)
		}
		subtotal += it.UnitCents * int64(it.Quantity)
	}

	order := &domain.Order{
		OrderID:          newOrderID(),
		Items:            req.Items,
		Customer:         req.Customer,
		SubtotalCents:    subtotal,
		ShippingCents:    req.ShippingCents,
		TotalCents:       subtotal + req.ShippingCents,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    domain.PaymentPending,
		ProcessingStatus: domain.ProcessingPending,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	created, err := gw.Create(ctx, order.OrderID, order.Key.String(), order.TotalCents,
		s.returnURL, s.webhookBase+"/"+req.PaymentMethod)
	if err != nil {
		logger.Warn("gateway transaction create failed", "order_id", order.OrderID, "err", err)
		return nil, err
	}

	if err := s.repo.AttachToken(ctx, order.Key, created.Token); err != nil {
		return nil, err
	}

	logger.Info("checkout started", "order_id", order.OrderID, "method", req.PaymentMethod)
	return &CheckoutResponse{
		OrderID:     order.OrderID,
		Token:       created.Token,
		RedirectURL: created.RedirectURL,
	}, nil
}

func newOrderID() string {
	return "O-" + strconv.FormatInt(time.Now().UnixNano(), 36)
}
