package application

import (
	"context"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/repository"
	"github.com/google/uuid"
)

// OrdersService answers back-office reads. The reference may be a record key
// or a merchant order id; both are accepted for the same historical reason the
// reconciliation lookups exist.
type OrdersService struct {
	repo repository.OrderRepo
}

func NewOrdersService(r repository.OrderRepo) *OrdersService {
	return &OrdersService{repo: r}
}

func (s *OrdersService) Get(ctx context.Context, ref string) (*domain.Order, error) {
	if key, err := uuid.Parse(ref); err == nil {
		o, err := s.repo.GetByKey(ctx, key)
		if err != nil || o != nil {
			return o, err
		}
	}
	return s.repo.GetByOrderID(ctx, ref)
}
