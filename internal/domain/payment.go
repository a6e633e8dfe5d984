package domain

// GatewayResult is the immutable commit/status answer from a payment gateway.
// response_code 0 together with status AUTHORIZED is the only approved
// combination; everything else is a rejection.
type GatewayResult struct {
	ResponseCode      int    `json:"response_code"`
	Status            string `json:"status"`
	BuyOrder          string `json:"buy_order"`
	AuthorizationCode string `json:"authorization_code"`
	PaymentTypeCode   string `json:"payment_type_code"`
	TransactionDate   string `json:"transaction_date"`
	AccountingDate    string `json:"accounting_date"`
	AmountCents       int64  `json:"amount"`
}

const StatusAuthorized = "AUTHORIZED"

func (r *GatewayResult) Approved() bool {
	return r.ResponseCode == 0 && r.Status == StatusAuthorized
}

// CreatedTransaction is the gateway answer to a create call: the token the
// buyer carries through the redirect flow and the page to send them to.
type CreatedTransaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"url"`
}

// Outcome is the normalized answer of a reconciliation run. It is what the
// result endpoint renders and what gets published downstream; it is never
// stored on its own.
type Outcome struct {
	OrderID       string         `json:"order_id"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	IsApproved    bool           `json:"is_approved"`
	Result        *GatewayResult `json:"result,omitempty"`
}
