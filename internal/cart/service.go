package cart

import (
	"context"
	"fmt"

	"dwolla-gateway/internal/logger"

	"go.uber.org/zap"
)

// Service empties the shopper's cart once the processor has accepted a checkout.
type Service interface {
	ClearCart(ctx context.Context, customerID uint) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ClearCart(ctx context.Context, customerID uint) error {
	// guest carts live in the browser session only
	if customerID == 0 || s.repo == nil {
		return nil
	}

	n, err := s.repo.ClearCart(ctx, customerID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to clear cart",
			zap.Uint("customer_id", customerID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrFailedClearCart, err)
	}

	logger.FromCtx(ctx).Debug("cart cleared",
		zap.Uint("customer_id", customerID),
		zap.Int64("rows", n),
	)
	return nil
}
