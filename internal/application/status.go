package application

import "github.com/feriapapel/orders-service/internal/domain"

// mapGatewayResult is the one canonical mapping from a gateway answer to the
// internal payment status. (0, AUTHORIZED) is the only approved combination;
// any non-zero response code is a rejection no matter what the status string
// says. The raw status string travels separately (status_webpay) so unusual
// gateway states stay visible downstream.
func mapGatewayResult(responseCode int, status string) (domain.PaymentStatus, bool) {
	if responseCode == 0 && status == domain.StatusAuthorized {
		return domain.PaymentCompleted, true
	}
	return domain.PaymentFailed, false
}
