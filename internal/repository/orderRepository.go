package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

// WriteError marks the one failure mode where the gateway has already settled
// the payment but the store update did not land. It gets logged distinctly so
// an operator can reconcile the two systems by hand.
type WriteError struct {
	Key uuid.UUID
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("order store write %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// PaymentUpdate is the single mutation the reconciliation flow applies.
type PaymentUpdate struct {
	PaymentStatus domain.PaymentStatus
	IsApproved    bool
	Details       *domain.TransactionDetail
}

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByKey(ctx context.Context, key uuid.UUID) (*domain.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	GetByToken(ctx context.Context, token string) (*domain.Order, error)
	GetByDetailToken(ctx context.Context, token string) (*domain.Order, error)
	AttachToken(ctx context.Context, key uuid.UUID, token string) error
	UpdatePaymentResult(ctx context.Context, key uuid.UUID, upd PaymentUpdate) (bool, error)
}

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(p *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: p}
}

const orderColumns = `
	id, order_id, items, customer, subtotal_cents, shipping_cents, total_cents,
	payment_method, webpay_token, payment_status, processing_status, is_approved,
	transaction_details, response_code, status_webpay, authorization_code,
	payment_type_code, transaction_date, accounting_date, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if o.Key == uuid.Nil {
		o.Key = uuid.New()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO shop.orders
			(id, order_id, items, customer, subtotal_cents, shipping_cents, total_cents,
			 payment_method, webpay_token, payment_status, processing_status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7,
			 $8, $9, $10, $11, $12, $13)
	`,
		o.Key,
		o.OrderID,
		items,
		customer,
		o.SubtotalCents,
		o.ShippingCents,
		o.TotalCents,
		o.PaymentMethod,
		nullable(o.WebpayToken),
		string(o.PaymentStatus),
		string(o.ProcessingStatus),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		logger.Warn("order insert failed", "order_id", o.OrderID, "err", err)
		return err
	}
	return nil
}

func (r *OrderRepository) GetByKey(ctx context.Context, key uuid.UUID) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT`+orderColumns+` FROM shop.orders WHERE id = $1`, key)
}

func (r *OrderRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT`+orderColumns+` FROM shop.orders WHERE order_id = $1`, orderID)
}

func (r *OrderRepository) GetByToken(ctx context.Context, token string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT`+orderColumns+` FROM shop.orders WHERE webpay_token = $1`, token)
}

func (r *OrderRepository) GetByDetailToken(ctx context.Context, token string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT`+orderColumns+` FROM shop.orders WHERE transaction_details->>'token_ws' = $1`, token)
}

func (r *OrderRepository) AttachToken(ctx context.Context, key uuid.UUID, token string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE shop.orders SET webpay_token = $2, updated_at = now() WHERE id = $1`,
		key, token,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdatePaymentResult applies the settled gateway result. The WHERE guard is
// the close of the redirect/webhook race: a completed order is never touched
// again, and the caller learns that via the false return.
func (r *OrderRepository) UpdatePaymentResult(ctx context.Context, key uuid.UUID, upd PaymentUpdate) (bool, error) {
	details, err := json.Marshal(upd.Details)
	if err != nil {
		return false, &WriteError{Key: key, Err: err}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE shop.orders SET
			payment_status     = $2,
			is_approved        = $3,
			transaction_details = $4,
			response_code      = $5,
			status_webpay      = $6,
			authorization_code = $7,
			payment_type_code  = $8,
			transaction_date   = $9,
			accounting_date    = $10,
			updated_at         = now()
		WHERE id = $1 AND payment_status <> 'completed'
	`,
		key,
		string(upd.PaymentStatus),
		upd.IsApproved,
		details,
		upd.Details.ResponseCode,
		upd.Details.Status,
		upd.Details.AuthorizationCode,
		upd.Details.PaymentTypeCode,
		upd.Details.TransactionDate,
		upd.Details.AccountingDate,
	)
	if err != nil {
		return false, &WriteError{Key: key, Err: err}
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, query, arg)

	var (
		o              domain.Order
		items          []byte
		customer       []byte
		details        []byte
		webpayToken    *string
		statusWebpay   *string
		authCode       *string
		payTypeCode    *string
		txDate         *string
		accDate        *string
		paymentStatus  string
		processStatus  string
	)
	err := row.Scan(
		&o.Key, &o.OrderID, &items, &customer,
		&o.SubtotalCents, &o.ShippingCents, &o.TotalCents,
		&o.PaymentMethod, &webpayToken, &paymentStatus, &processStatus, &o.IsApproved,
		&details, &o.ResponseCode, &statusWebpay, &authCode,
		&payTypeCode, &txDate, &accDate, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.Warn("order select failed", "err", err)
		return nil, err
	}

	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.ProcessingStatus = domain.ProcessingStatus(processStatus)
	o.WebpayToken = deref(webpayToken)
	o.StatusWebpay = deref(statusWebpay)
	o.AuthorizationCode = deref(authCode)
	o.PaymentTypeCode = deref(payTypeCode)
	o.TransactionDate = deref(txDate)
	o.AccountingDate = deref(accDate)

	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, err
		}
	}
	if len(customer) > 0 {
		if err := json.Unmarshal(customer, &o.Customer); err != nil {
			return nil, err
		}
	}
	if len(details) > 0 && string(details) != "null" {
		o.TransactionDetails = &domain.TransactionDetail{}
		if err := json.Unmarshal(details, o.TransactionDetails); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
