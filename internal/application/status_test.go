package application

import (
	"testing"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapGatewayResult(t *testing.T) {
	cases := []struct {
		name         string
		responseCode int
		status       string
		wantStatus   domain.PaymentStatus
		wantApproved bool
	}{
		{"authorized", 0, "AUTHORIZED", domain.PaymentCompleted, true},
		{"zero code but failed status", 0, "FAILED", domain.PaymentFailed, false},
		{"zero code unknown status", 0, "NULLIFIED", domain.PaymentFailed, false},
		{"rejected regardless of status string", -1, "AUTHORIZED", domain.PaymentFailed, false},
		{"hard decline", -1, "FAILED", domain.PaymentFailed, false},
		{"soft decline", -96, "FAILED", domain.PaymentFailed, false},
		{"empty status", 0, "", domain.PaymentFailed, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, approved := mapGatewayResult(tc.responseCode, tc.status)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantApproved, approved)
		})
	}
}
