package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/feriapapel/orders-service/internal/domain"
)

// Client is what the reconciliation engine needs from a payment gateway.
// Commit settles a payment attempt by token; Status is the read-only fallback
// used when the gateway says the token was already processed. returnURL is
// where the buyer's browser comes back; notifyURL is where the gateway's
// server-to-server notification POSTs (gateways without one ignore it).
type Client interface {
	Create(ctx context.Context, orderID, sessionID string, amountCents int64, returnURL, notifyURL string) (*domain.CreatedTransaction, error)
	Commit(ctx context.Context, token string) (*domain.GatewayResult, error)
	Status(ctx context.Context, token string) (*domain.GatewayResult, error)
}

// ErrConflict means the gateway already processed this token. Not a real
// failure: a redirect and a webhook raced, and the loser must fall back to
// Status.
var ErrConflict = errors.New("gateway: transaction already processed")

// Error wraps transport-level and malformed-response failures. Callers treat
// it as a hard failure and do not retry inline.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
