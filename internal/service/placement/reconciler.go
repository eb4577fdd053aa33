package placement

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// StockReconciler применяет списания остатков по позициям уже записанного
// заказа. Каждое списание — атомарный compare-and-decrement на стороне
// хранилища; проверка Validator к этому моменту не имеет значения.
type StockReconciler struct {
	stock  domain.ProductStock
	logger *log.Entry
}

// NewStockReconciler создаёт reconciler поверх атомарного стока.
func NewStockReconciler(stock domain.ProductStock, logger *log.Entry) *StockReconciler {
	if logger == nil {
		logger = log.WithField("component", "stock-reconciler")
	}
	return &StockReconciler{
		stock:  stock,
		logger: logger,
	}
}

// Reconcile списывает сток по всем позициям заказа. Если хотя бы одно
// списание не проходит, уже применённые списания этого заказа возвращаются
// обратно и reconcile завершается ошибкой StockConflictError — заказ при
// этом уже существует durable, компенсацию доводит вызывающая сторона.
func (r *StockReconciler) Reconcile(orderID string, lines []domain.OrderLine) error {
	// Списания идут в фиксированном глобальном порядке (по возрастанию
	// product id): конкурирующие многопозиционные заказы не могут
	// заблокировать друг друга циклически.
	sorted := append([]domain.OrderLine(nil), lines...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})

	for i, line := range sorted {
		ok, err := r.stock.DecrementIfAvailable(line.ProductID, line.Qty)
		if err != nil {
			r.rollback(orderID, sorted[:i])
			return fmt.Errorf("decrement stock for product %s: %w", line.ProductID, err)
		}
		if !ok {
			r.rollback(orderID, sorted[:i])
			return &domain.StockConflictError{ProductID: line.ProductID, OrderID: orderID}
		}
	}

	return nil
}

// rollback возвращает частично применённые списания. Best-effort: если
// возврат не прошёл, остаток выправит асинхронная компенсация по
// outbox-событию заказа.
func (r *StockReconciler) rollback(orderID string, applied []domain.OrderLine) {
	for _, line := range applied {
		if err := r.stock.Release(line.ProductID, line.Qty); err != nil {
			r.logger.WithError(err).WithFields(log.Fields{
				"order_id":   orderID,
				"product_id": line.ProductID,
				"qty":        line.Qty,
			}).Error("failed to release stock during rollback")
		}
	}
}
