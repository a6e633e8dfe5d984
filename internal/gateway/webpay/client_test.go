package webpay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feriapapel/orders-service/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitAuthorized(t *testing.T) {
	var gotMethod, gotPath, gotKeyID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotKeyID = r.Header.Get("Tbk-Api-Key-Id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"response_code": 0,
			"status": "AUTHORIZED",
			"buy_order": "O-12345",
			"authorization_code": "1213",
			"payment_type_code": "VN",
			"transaction_date": "2026-08-30T12:00:00Z",
			"accounting_date": "0830",
			"amount": 15990
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "597055555532", "secret")
	res, err := c.Commit(context.Background(), "tok-abc")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, transactionsPath+"/tok-abc", gotPath)
	assert.Equal(t, "597055555532", gotKeyID)
	assert.Equal(t, 0, res.ResponseCode)
	assert.Equal(t, "AUTHORIZED", res.Status)
	assert.Equal(t, "O-12345", res.BuyOrder)
	assert.True(t, res.Approved())
}

func TestCommitAlreadyProcessed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error_message":"Transaction already locked"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cc", "key")
	_, err := c.Commit(context.Background(), "tok-dup")
	require.ErrorIs(t, err, gateway.ErrConflict)
}

func TestCommitServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cc", "key")
	_, err := c.Commit(context.Background(), "tok-err")

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
}

func TestCommitMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cc", "key")
	_, err := c.Commit(context.Background(), "tok-bad")

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
}

func TestCreateTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok-new","url":"https://webpay3gint.transbank.cl/webpayserver/initTransaction"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cc", "key")
	created, err := c.Create(context.Background(), "O-1", "sess-1", 5000,
		"https://shop.example/payment/return", "https://shop.example/payment/webhook/webpay")
	require.NoError(t, err)
	assert.Equal(t, "tok-new", created.Token)
	assert.NotEmpty(t, created.RedirectURL)
}
