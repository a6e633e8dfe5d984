package khipu

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/gateway"
)

// Client talks to the Khipu 2.0 REST API. Khipu has no commit step: the
// notification token is only good for reading the payment, so Commit and
// Status are the same read and the call is naturally idempotent. The answer
// is normalized into the shared gateway result shape.
type Client struct {
	baseURL    string
	receiverID string
	secret     string
	http       *http.Client
}

func NewClient(baseURL, receiverID, secret string) *Client {
	return &Client{
		baseURL:    baseURL,
		receiverID: receiverID,
		secret:     secret,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

type paymentResponse struct {
	PaymentID     string  `json:"payment_id"`
	PaymentURL    string  `json:"payment_url"`
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	StatusDetail  string  `json:"status_detail"`
	Amount        float64 `json:"amount,string"`
}

func (c *Client) Create(ctx context.Context, orderID, sessionID string, amountCents int64, returnURL, notifyURL string) (*domain.CreatedTransaction, error) {
	params := url.Values{}
	params.Set("subject", "Pedido "+orderID)
	params.Set("transaction_id", orderID)
	params.Set("amount", strconv.FormatInt(amountCents, 10))
	params.Set("currency", "CLP")
	params.Set("return_url", returnURL)
	params.Set("notify_url", notifyURL)
	params.Set("notify_api_version", "1.3")

	var pay paymentResponse
	if err := c.do(ctx, http.MethodPost, "/payments", params, &pay); err != nil {
		return nil, err
	}
	if pay.PaymentID == "" {
		return nil, &gateway.Error{Op: "create", Err: fmt.Errorf("empty payment_id in response")}
	}
	return &domain.CreatedTransaction{Token: pay.PaymentID, RedirectURL: pay.PaymentURL}, nil
}

func (c *Client) Commit(ctx context.Context, token string) (*domain.GatewayResult, error) {
	return c.Status(ctx, token)
}

func (c *Client) Status(ctx context.Context, token string) (*domain.GatewayResult, error) {
	params := url.Values{}
	params.Set("notification_token", token)

	var pay paymentResponse
	if err := c.do(ctx, http.MethodGet, "/payments", params, &pay); err != nil {
		return nil, err
	}

	res := &domain.GatewayResult{
		Status:          strings.ToUpper(pay.Status),
		BuyOrder:        pay.TransactionID,
		PaymentTypeCode: "KH",
		AmountCents:     int64(pay.Amount),
		TransactionDate: time.Now().UTC().Format(time.RFC3339),
	}
	// "done" is khipu's settled state; everything else is a rejection or a
	// still-pending payment, which the mapper treats as failed.
	if pay.Status == "done" {
		res.ResponseCode = 0
		res.Status = domain.StatusAuthorized
		res.AuthorizationCode = pay.PaymentID
	} else {
		res.ResponseCode = -1
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	op := method + " " + path
	endpoint := c.baseURL + path

	var reqBody io.Reader
	reqURL := endpoint
	if method == http.MethodGet {
		reqURL += "?" + params.Encode()
	} else {
		reqBody = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return &gateway.Error{Op: op, Err: err}
	}
	req.Header.Set("Authorization", c.receiverID+":"+c.sign(method, endpoint, params))
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &gateway.Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &gateway.Error{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &gateway.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// sign builds khipu's request signature: method, url and the sorted params
// concatenated with '&', HMAC-SHA256 over the secret.
func (c *Client) sign(method, endpoint string, params url.Values) string {
	parts := []string{method, url.QueryEscape(endpoint)}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	// url.Values.Encode sorts by key; do the same here
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params.Get(k)))
	}

	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}
