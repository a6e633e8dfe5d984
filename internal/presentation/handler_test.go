package presentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/feriapapel/orders-service/internal/application"
	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/logger"
	"github.com/feriapapel/orders-service/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init()
}

type stubReconciler struct {
	out     *domain.Outcome
	err     error
	gotTok  string
	gotOrd  string
	calls   int
}

func (s *stubReconciler) Confirm(ctx context.Context, token, knownOrderID string) (*domain.Outcome, error) {
	s.calls++
	s.gotTok, s.gotOrd = token, knownOrderID
	return s.out, s.err
}

func newRouter(rec Reconciler) chi.Router {
	r := chi.NewRouter()
	h := NewPaymentsHandler(nil, nil, map[string]Reconciler{
		application.MethodWebpay: rec,
		application.MethodKhipu:  rec,
	})
	h.Register(r)
	return r
}

func TestConfirmPaymentOK(t *testing.T) {
	rec := &stubReconciler{out: &domain.Outcome{
		OrderID:       "O-12345",
		PaymentStatus: domain.PaymentCompleted,
		IsApproved:    true,
	}}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodPost, "/payment/confirm",
		strings.NewReader(`{"token":"T1","order_id":"O-12345"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "T1", rec.gotTok)
	assert.Equal(t, "O-12345", rec.gotOrd)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "O-12345", body["order_id"])
	assert.Equal(t, "completed", body["payment_status"])
	assert.Equal(t, true, body["is_approved"])
}

func TestConfirmPaymentMissingToken(t *testing.T) {
	rec := &stubReconciler{}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodPost, "/payment/confirm", strings.NewReader(`{"token":""}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, rec.calls)
}

func TestConfirmPaymentOrderNotFound(t *testing.T) {
	rec := &stubReconciler{err: repository.ErrOrderNotFound}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodPost, "/payment/confirm", strings.NewReader(`{"token":"T404"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestPaymentReturnToken(t *testing.T) {
	rec := &stubReconciler{out: &domain.Outcome{
		OrderID:       "O-1",
		PaymentStatus: domain.PaymentCompleted,
		IsApproved:    true,
	}}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodGet, "/payment/return?token_ws=tok-xyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-xyz", rec.gotTok)
}

func TestPaymentReturnAborted(t *testing.T) {
	rec := &stubReconciler{}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodGet, "/payment/return?TBK_TOKEN=tok-abort", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, rec.calls)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "aborted", body["payment_status"])
}

func TestWebhookAlwaysAcks(t *testing.T) {
	// internal failure must not leak to the gateway, it retries forever on
	// anything but 200
	rec := &stubReconciler{err: errors.New("db down")}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodPost, "/payment/webhook/webpay",
		strings.NewReader(`{"token_ws":"T-hook"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "T-hook", rec.gotTok)
}

func TestWebhookUnknownGatewayAcks(t *testing.T) {
	rec := &stubReconciler{}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodPost, "/payment/webhook/paypal",
		strings.NewReader(`{"token_ws":"T-x"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, rec.calls)
}

func TestWebhookToleratesExtraPayloadFields(t *testing.T) {
	// the payload shape belongs to the gateway; extra fields must not stop
	// the confirmation from running
	rec := &stubReconciler{out: &domain.Outcome{
		OrderID:       "O-1",
		PaymentStatus: domain.PaymentCompleted,
		IsApproved:    true,
	}}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodPost, "/payment/webhook/webpay",
		strings.NewReader(`{"token_ws":"T-real","amount":15990,"buy_order":"O-1","vci":"TSY"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "T-real", rec.gotTok)
}

func TestConfirmPaymentGatewayNotConfigured(t *testing.T) {
	r := chi.NewRouter()
	h := NewPaymentsHandler(nil, nil, map[string]Reconciler{})
	h.Register(r)

	req := httptest.NewRequest(http.MethodPost, "/payment/confirm", strings.NewReader(`{"token":"T1"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookNotificationToken(t *testing.T) {
	rec := &stubReconciler{out: &domain.Outcome{OrderID: "O-2", PaymentStatus: domain.PaymentCompleted}}
	r := newRouter(rec)

	req := httptest.NewRequest(http.MethodPost, "/payment/webhook/khipu",
		strings.NewReader(`{"notification_token":"nt-55"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nt-55", rec.gotTok)
}
