package placement

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// RetryConfig задаёт политику повторов для retriable-ошибок размещения.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryablePlacer оборачивает Orchestrator и повторяет размещение только
// при retriable-ошибках (инфраструктурные отказы persistence). Ошибки
// валидации и конфликты стока не повторяются: повтор даст тот же результат
// или уже неуместен.
type RetryablePlacer struct {
	inner  Orchestrator
	config RetryConfig
	logger *log.Entry
}

// NewRetryablePlacer создаёт обёртку с повторами поверх оркестратора.
func NewRetryablePlacer(inner Orchestrator, config RetryConfig) *RetryablePlacer {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &RetryablePlacer{
		inner:  inner,
		config: config,
		logger: log.WithField("component", "retryable-placer"),
	}
}

// PlaceOrder делегирует размещение, повторяя его при retriable-ошибках с
// экспоненциальной задержкой. Отмена контекста прерывает ожидание.
func (p *RetryablePlacer) PlaceOrder(ctx context.Context, customerID string, lines []domain.OrderLineRequest) (domain.Order, error) {
	delay := p.config.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		order, err := p.inner.PlaceOrder(ctx, customerID, lines)
		if err == nil {
			return order, nil
		}
		if !domain.IsRetriable(err) {
			return domain.Order{}, err
		}
		lastErr = err

		if attempt == p.config.MaxAttempts {
			break
		}

		p.logger.WithError(err).WithFields(log.Fields{
			"customer_id": customerID,
			"attempt":     attempt,
			"delay":       delay.String(),
		}).Warn("placement failed, retrying")

		select {
		case <-ctx.Done():
			return domain.Order{}, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * p.config.BackoffFactor)
		if delay > p.config.MaxDelay {
			delay = p.config.MaxDelay
		}
	}

	return domain.Order{}, lastErr
}

// GetOrder делегируется без повторов.
func (p *RetryablePlacer) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return p.inner.GetOrder(ctx, orderID)
}

// ListOrders делегируется без повторов.
func (p *RetryablePlacer) ListOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	return p.inner.ListOrders(ctx, customerID, limit)
}
