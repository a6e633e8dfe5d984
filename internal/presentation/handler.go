package presentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/feriapapel/orders-service/internal/application"
	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/gateway"
	"github.com/feriapapel/orders-service/internal/logger"
	"github.com/feriapapel/orders-service/internal/presentation/helpers"
	"github.com/feriapapel/orders-service/internal/repository"
	"github.com/go-chi/chi/v5"
)

// Reconciler is the slice of the reconciliation service the handlers need.
type Reconciler interface {
	Confirm(ctx context.Context, token, knownOrderID string) (*domain.Outcome, error)
}

type PaymentsHandler struct {
	checkout *application.CheckoutService
	orders   *application.OrdersService

	// one reconciler per gateway; webhooks address them by name
	reconcilers map[string]Reconciler
}

func NewPaymentsHandler(
	checkout *application.CheckoutService,
	orders *application.OrdersService,
	reconcilers map[string]Reconciler,
) *PaymentsHandler {
	return &PaymentsHandler{checkout: checkout, orders: orders, reconcilers: reconcilers}
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/checkout", h.StartCheckout)
	r.Post("/payment/confirm", h.ConfirmPayment)
	r.Get("/payment/return", h.PaymentReturn)
	r.Post("/payment/webhook/{gateway}", h.Webhook)
	r.Get("/orders/{ref}", h.GetOrder)
}

func (h *PaymentsHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req application.CheckoutRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	resp, err := h.checkout.Start(r.Context(), req)
	if err != nil {
		logger.Warn("checkout failed", "err", err)
		helpers.HttpError(w, http.StatusBadGateway, "checkout failed")
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, resp)
}

type confirmRequest struct {
	Token   string `json:"token"`
	OrderID string `json:"order_id,omitempty"`
}

// ConfirmPayment is the synchronous confirmation entry. Failures come back to
// the buyer as an error page with a retry affordance on the storefront side.
func (h *PaymentsHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		helpers.HttpError(w, http.StatusBadRequest, "token is required")
		return
	}
	h.confirm(w, r, application.MethodWebpay, req.Token, req.OrderID)
}

// PaymentReturn handles the browser coming back from the gateway. A normal
// return carries token_ws; an aborted flow carries TBK_TOKEN instead and
// there is nothing to commit.
func (h *PaymentsHandler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token_ws")
	if token == "" {
		if aborted := r.URL.Query().Get("TBK_TOKEN"); aborted != "" {
			helpers.WriteJSON(w, http.StatusOK, map[string]any{
				"success":        false,
				"payment_status": domain.PaymentAborted,
			})
			return
		}
		helpers.HttpError(w, http.StatusBadRequest, "token_ws is required")
		return
	}
	h.confirm(w, r, application.MethodWebpay, token, r.URL.Query().Get("order_id"))
}

func (h *PaymentsHandler) confirm(w http.ResponseWriter, r *http.Request, gatewayName, token, orderID string) {
	rec, ok := h.reconcilers[gatewayName]
	if !ok {
		logger.Error("no reconciler wired for gateway", "gateway", gatewayName)
		helpers.HttpError(w, http.StatusInternalServerError, "payment gateway not configured")
		return
	}

	out, err := rec.Confirm(r.Context(), token, orderID)
	if err != nil {
		status := confirmErrorStatus(err)
		logger.Warn("confirm failed", "token", token, "err", err)
		helpers.HttpError(w, status, err.Error())
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"order_id":       out.OrderID,
		"payment_status": out.PaymentStatus,
		"is_approved":    out.IsApproved,
		"details":        out.Result,
	})
}

type webhookPayload struct {
	Token             string `json:"token_ws"`
	NotificationToken string `json:"notification_token"`
	OrderID           string `json:"order_id"`
}

// Webhook takes asynchronous gateway notifications. Whatever happens inside,
// the gateway gets a 200: it retries forever on anything else, and a genuine
// internal failure is an operator problem, not a redelivery problem. The
// payload shape is the gateway's, not ours, so the decode is lenient and only
// picks the fields we use.
func (h *PaymentsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "gateway")
	rec, ok := h.reconcilers[name]
	if !ok {
		logger.Warn("webhook for unknown gateway", "gateway", name)
		helpers.WriteJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	var p webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		logger.Warn("webhook payload unreadable", "gateway", name, "err", err)
		helpers.WriteJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	token := p.Token
	if token == "" {
		token = p.NotificationToken
	}
	if token == "" {
		logger.Warn("webhook without token", "gateway", name)
		helpers.WriteJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	if _, err := rec.Confirm(r.Context(), token, p.OrderID); err != nil {
		logger.Error("webhook reconciliation failed", "gateway", name, "token", token, "err", err)
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"received": true})
}

func (h *PaymentsHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if strings.TrimSpace(ref) == "" {
		helpers.HttpError(w, http.StatusBadRequest, "ref is empty")
		return
	}

	ord, err := h.orders.Get(r.Context(), ref)
	if err != nil {
		helpers.HttpError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if ord == nil {
		helpers.HttpError(w, http.StatusNotFound, "order not found")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, ord)
}

func confirmErrorStatus(err error) int {
	switch {
	case errors.Is(err, application.ErrMissingReference):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrOrderNotFound):
		return http.StatusNotFound
	default:
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}
