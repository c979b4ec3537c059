package payment

import (
	"context"

	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

// LogConfirmationSender emits the confirmation request as a structured event
// for the downstream notification collaborator to consume. It stands in
// until a real transport is wired; either way the engine only fires and
// forgets.
type LogConfirmationSender struct {
	logger *zap.Logger
}

func NewLogConfirmationSender(logger *zap.Logger) *LogConfirmationSender {
	return &LogConfirmationSender{logger: logger}
}

func (s *LogConfirmationSender) OrderPaid(ctx context.Context, order *domain.Order) {
	s.logger.Info("order confirmation requested",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_email", order.CustomerEmail),
		zap.Int64("amount", order.TotalAmount))
}
