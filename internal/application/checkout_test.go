package application

import (
	"context"
	"testing"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartRequest(method string) CheckoutRequest {
	return CheckoutRequest{
		PaymentMethod: method,
		ShippingCents: 3500,
		Customer:      domain.Customer{Name: "Ana Rojas", Email: "ana@example.com", City: "Valdivia"},
		Items: []domain.Item{
			{ProductID: "cuaderno-a5", Title: "Cuaderno A5 papel reciclado", UnitCents: 7990, Quantity: 2},
			{ProductID: "sobre-kraft", Title: "Sobre kraft hecho a mano", UnitCents: 1490, Quantity: 1},
		},
	}
}

func TestCheckoutStart(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := NewCheckoutService(repo, map[string]gateway.Client{MethodWebpay: gw},
		"https://shop.example/payment/return", "https://shop.example/payment/webhook")

	resp, err := svc.Start(context.Background(), cartRequest(MethodWebpay))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, "tok-"+resp.OrderID, resp.Token)
	assert.NotEmpty(t, resp.RedirectURL)

	stored, err := repo.GetByOrderID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.PaymentPending, stored.PaymentStatus)
	assert.Equal(t, domain.ProcessingPending, stored.ProcessingStatus)
	assert.Equal(t, resp.Token, stored.WebpayToken)
	// 2*7990 + 1490 + 3500
	assert.Equal(t, int64(17470), stored.SubtotalCents)
	assert.Equal(t, int64(20970), stored.TotalCents)

	// browser return and server-to-server notify go to different routes
	assert.Equal(t, "https://shop.example/payment/return", gw.gotReturnURL)
	assert.Equal(t, "https://shop.example/payment/webhook/webpay", gw.gotNotifyURL)
}

func TestCheckoutUnsupportedMethod(t *testing.T) {
	repo := newFakeRepo()
	svc := NewCheckoutService(repo, map[string]gateway.Client{},
		"https://shop.example/payment/return", "https://shop.example/payment/webhook")

	_, err := svc.Start(context.Background(), cartRequest("transfer"))
	require.Error(t, err)
}

func TestCheckoutEmptyCart(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := NewCheckoutService(repo, map[string]gateway.Client{MethodWebpay: gw},
		"https://shop.example/payment/return", "https://shop.example/payment/webhook")

	req := cartRequest(MethodWebpay)
	req.Items = nil
	_, err := svc.Start(context.Background(), req)
	require.Error(t, err)
}
