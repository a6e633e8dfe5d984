package application

import (
	"context"
	"errors"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/gateway"
	"github.com/feriapapel/orders-service/internal/logger"
	"github.com/feriapapel/orders-service/internal/repository"
	"github.com/google/uuid"
)

// ErrMissingReference means neither the caller nor the gateway produced an
// order identifier, so there is no record to reconcile against.
var ErrMissingReference = errors.New("no order reference for transaction")

// OutcomePublisher receives every genuinely settled outcome. Nil-able.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, out *domain.Outcome) error
}

// lookupStrategy is one way of finding the order a gateway result belongs to.
// The strategies exist because record keys and internal order ids drifted
// apart historically, and old records predate token persistence. The chain is
// data: appending a new fallback does not touch Confirm.
type lookupStrategy struct {
	name string
	find func(ctx context.Context, ref, token string) (*domain.Order, error)
}

type ReconciliationService struct {
	repo      repository.OrderRepo
	gw        gateway.Client
	publisher OutcomePublisher
	lookups   []lookupStrategy
}

func NewReconciliationService(repo repository.OrderRepo, gw gateway.Client, pub OutcomePublisher) *ReconciliationService {
	s := &ReconciliationService{repo: repo, gw: gw, publisher: pub}
	s.lookups = []lookupStrategy{
		{name: "key", find: func(ctx context.Context, ref, _ string) (*domain.Order, error) {
			key, err := uuid.Parse(ref)
			if err != nil {
				return nil, nil // reference is not a record key, next strategy
			}
			return s.repo.GetByKey(ctx, key)
		}},
		{name: "order_id", find: func(ctx context.Context, ref, _ string) (*domain.Order, error) {
			return s.repo.GetByOrderID(ctx, ref)
		}},
		{name: "webpay_token", find: func(ctx context.Context, _, token string) (*domain.Order, error) {
			return s.repo.GetByToken(ctx, token)
		}},
		{name: "detail_token", find: func(ctx context.Context, _, token string) (*domain.Order, error) {
			return s.repo.GetByDetailToken(ctx, token)
		}},
	}
	return s
}

// Confirm settles the payment attempt behind token and updates the matching
// order exactly once. knownOrderID may be empty; then the gateway's buy_order
// is the reference. Safe to call again for the same token: the stored outcome
// comes back and nothing is written.
func (s *ReconciliationService) Confirm(ctx context.Context, token, knownOrderID string) (*domain.Outcome, error) {
	// Settled already? Then answer from the store and skip the gateway: a
	// duplicate webhook must not trigger a second commit call.
	if knownOrderID != "" {
		o, err := s.locate(ctx, knownOrderID, token)
		if err != nil {
			return nil, err
		}
		if o != nil && o.PaymentStatus == domain.PaymentCompleted {
			logger.Info("confirm short-circuit, order already completed", "order_id", o.OrderID)
			return storedOutcome(o), nil
		}
	}

	res, err := s.gw.Commit(ctx, token)
	if errors.Is(err, gateway.ErrConflict) {
		// The redirect and the webhook raced and the other one committed
		// first. The read-only status call gives the same result.
		logger.Info("commit conflict, falling back to status query", "token", token)
		res, err = s.gw.Status(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	ref := knownOrderID
	if ref == "" {
		ref = res.BuyOrder
	}
	if ref == "" {
		return nil, ErrMissingReference
	}

	order, err := s.locate(ctx, ref, token)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, repository.ErrOrderNotFound
	}

	status, approved := mapGatewayResult(res.ResponseCode, res.Status)
	detail := &domain.TransactionDetail{
		TokenWS:           token,
		ResponseCode:      res.ResponseCode,
		Status:            res.Status,
		BuyOrder:          res.BuyOrder,
		AuthorizationCode: res.AuthorizationCode,
		PaymentTypeCode:   res.PaymentTypeCode,
		TransactionDate:   res.TransactionDate,
		AccountingDate:    res.AccountingDate,
		AmountCents:       res.AmountCents,
	}

	applied, err := s.repo.UpdatePaymentResult(ctx, order.Key, repository.PaymentUpdate{
		PaymentStatus: status,
		IsApproved:    approved,
		Details:       detail,
	})
	if err != nil {
		logger.Error("payment settled at gateway but store update failed, manual reconciliation needed",
			"order_id", order.OrderID, "token", token, "err", err)
		return nil, err
	}
	if !applied {
		// Conditional write lost against a concurrent confirmation; the row
		// is completed, so re-read and answer with what is stored.
		stored, err := s.repo.GetByKey(ctx, order.Key)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			logger.Info("concurrent confirmation won, returning stored outcome", "order_id", stored.OrderID)
			return storedOutcome(stored), nil
		}
		return nil, repository.ErrOrderNotFound
	}

	out := &domain.Outcome{
		OrderID:       order.OrderID,
		PaymentStatus: status,
		IsApproved:    approved,
		Result:        res,
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOutcome(ctx, out); err != nil {
			logger.Warn("outcome publish failed", "order_id", out.OrderID, "err", err)
		}
	}
	return out, nil
}

func (s *ReconciliationService) locate(ctx context.Context, ref, token string) (*domain.Order, error) {
	for _, strat := range s.lookups {
		o, err := strat.find(ctx, ref, token)
		if err != nil {
			return nil, err
		}
		if o != nil {
			return o, nil
		}
	}
	return nil, nil
}

func storedOutcome(o *domain.Order) *domain.Outcome {
	out := &domain.Outcome{
		OrderID:       o.OrderID,
		PaymentStatus: o.PaymentStatus,
		IsApproved:    o.IsApproved,
	}
	if d := o.TransactionDetails; d != nil {
		out.Result = &domain.GatewayResult{
			ResponseCode:      d.ResponseCode,
			Status:            d.Status,
			BuyOrder:          d.BuyOrder,
			AuthorizationCode: d.AuthorizationCode,
			PaymentTypeCode:   d.PaymentTypeCode,
			TransactionDate:   d.TransactionDate,
			AccountingDate:    d.AccountingDate,
			AmountCents:       d.AmountCents,
		}
	}
	return out
}
