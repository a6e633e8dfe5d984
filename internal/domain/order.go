package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the fulfilment state of an order. The set is open:
// the back-office writes a few values of its own, so unknown strings are
// kept as-is instead of being rejected.
type ProcessingStatus string

const (
	ProcessingPending        ProcessingStatus = "pending"
	ProcessingInProgress     ProcessingStatus = "processing"
	ProcessingShipped        ProcessingStatus = "shipped"
	ProcessingFinished       ProcessingStatus = "finished"
	ProcessingAwaitingPickup ProcessingStatus = "awaiting-pickup"
	ProcessingPickedUp       ProcessingStatus = "picked-up"
	ProcessingReserved       ProcessingStatus = "reserved"
	ProcessingCancelled      ProcessingStatus = "cancelled"
)

// PaymentStatus only moves forward: pending -> completed|failed|aborted.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentAborted   PaymentStatus = "aborted"
)

type Item struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitCents int64  `json:"unit_cents"`
	Quantity  int    `json:"quantity"`
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Region  string `json:"region"`
}

type Order struct {
	Key              uuid.UUID        `json:"key"`
	OrderID          string           `json:"order_id"`
	Items            []Item           `json:"items"`
	Customer         Customer         `json:"customer"`
	SubtotalCents    int64            `json:"subtotal_cents"`
	ShippingCents    int64            `json:"shipping_cents"`
	TotalCents       int64            `json:"total_cents"`
	PaymentMethod    string           `json:"payment_method"`
	WebpayToken      string           `json:"webpay_token,omitempty"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	IsApproved       bool             `json:"is_approved"`

	// TransactionDetails holds the raw gateway result for the settled payment
	// attempt. Key fields are also flattened below so the back-office can query
	// them without digging into the JSON.
	TransactionDetails *TransactionDetail `json:"transaction_details,omitempty"`
	ResponseCode       *int               `json:"response_code,omitempty"`
	StatusWebpay       string             `json:"status_webpay,omitempty"`
	AuthorizationCode  string             `json:"authorization_code,omitempty"`
	PaymentTypeCode    string             `json:"payment_type_code,omitempty"`
	TransactionDate    string             `json:"transaction_date,omitempty"`
	AccountingDate     string             `json:"accounting_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionDetail is the gateway result as stored on the order, plus the
// confirmation token it was obtained with.
type TransactionDetail struct {
	TokenWS           string `json:"token_ws"`
	ResponseCode      int    `json:"response_code"`
	Status            string `json:"status"`
	BuyOrder          string `json:"buy_order"`
	AuthorizationCode string `json:"authorization_code"`
	PaymentTypeCode   string `json:"payment_type_code"`
	TransactionDate   string `json:"transaction_date"`
	AccountingDate    string `json:"accounting_date"`
	AmountCents       int64  `json:"amount"`
}
