package webpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/gateway"
)

const transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

// Client talks to the Webpay Plus REST API. Credentials are fixed at
// construction; the http.Client timeout is the upper bound on every call.
type Client struct {
	baseURL      string
	commerceCode string
	apiKey       string
	http         *http.Client
}

func NewClient(baseURL, commerceCode, apiKey string) *Client {
	return &Client{
		baseURL:      baseURL,
		commerceCode: commerceCode,
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

type createRequest struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

// Create starts a transaction. Webpay has no server-to-server notify URL in
// the create call; notifyURL is accepted for the shared contract and unused.
func (c *Client) Create(ctx context.Context, orderID, sessionID string, amountCents int64, returnURL, _ string) (*domain.CreatedTransaction, error) {
	body := createRequest{
		BuyOrder:  orderID,
		SessionID: sessionID,
		Amount:    amountCents,
		ReturnURL: returnURL,
	}

	var created domain.CreatedTransaction
	if err := c.do(ctx, http.MethodPost, transactionsPath, &body, &created); err != nil {
		return nil, err
	}
	if created.Token == "" {
		return nil, &gateway.Error{Op: "create", Err: fmt.Errorf("empty token in response")}
	}
	return &created, nil
}

func (c *Client) Commit(ctx context.Context, token string) (*domain.GatewayResult, error) {
	var res domain.GatewayResult
	if err := c.do(ctx, http.MethodPut, transactionsPath+"/"+token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Status(ctx context.Context, token string) (*domain.GatewayResult, error) {
	var res domain.GatewayResult
	if err := c.do(ctx, http.MethodGet, transactionsPath+"/"+token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &gateway.Error{Op: op, Err: err}
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &gateway.Error{Op: op, Err: err}
	}
	req.Header.Set("Tbk-Api-Key-Id", c.commerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &gateway.Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	// Webpay answers 422 when the token was committed already (or aborted by
	// a concurrent flow). The engine falls back to Status on this.
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return gateway.ErrConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &gateway.Error{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &gateway.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
