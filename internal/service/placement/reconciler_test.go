package placement

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

func TestReconcile_DecrementsAllLines(t *testing.T) {
	products := memory.NewProductRepository()
	products.Seed(domain.Product{ID: "prod-1", Quantity: 10})
	products.Seed(domain.Product{ID: "prod-2", Quantity: 5})

	reconciler := NewStockReconciler(products, nil)
	err := reconciler.Reconcile("order-1", []domain.OrderLine{
		{ProductID: "prod-2", Qty: 3},
		{ProductID: "prod-1", Qty: 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if qty, _ := products.Quantity("prod-1"); qty != 6 {
		t.Errorf("prod-1 quantity = %d, want 6", qty)
	}
	if qty, _ := products.Quantity("prod-2"); qty != 2 {
		t.Errorf("prod-2 quantity = %d, want 2", qty)
	}
}

func TestReconcile_RollsBackOnConflict(t *testing.T) {
	products := memory.NewProductRepository()
	products.Seed(domain.Product{ID: "prod-1", Quantity: 10})
	products.Seed(domain.Product{ID: "prod-2", Quantity: 1})

	reconciler := NewStockReconciler(products, nil)
	err := reconciler.Reconcile("order-1", []domain.OrderLine{
		{ProductID: "prod-1", Qty: 4},
		{ProductID: "prod-2", Qty: 5},
	})

	var conflict *domain.StockConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StockConflictError, got %v", err)
	}
	if conflict.ProductID != "prod-2" {
		t.Errorf("conflict product = %s, want prod-2", conflict.ProductID)
	}
	if conflict.OrderID != "order-1" {
		t.Errorf("conflict order = %s, want order-1", conflict.OrderID)
	}

	// Списание prod-1 должно быть возвращено целиком.
	if qty, _ := products.Quantity("prod-1"); qty != 10 {
		t.Errorf("prod-1 quantity = %d, want 10 after rollback", qty)
	}
	if qty, _ := products.Quantity("prod-2"); qty != 1 {
		t.Errorf("prod-2 quantity = %d, want 1", qty)
	}
}

func TestReconcile_DecrementOrderIsDeterministic(t *testing.T) {
	recorder := &recordingStock{}
	reconciler := NewStockReconciler(recorder, nil)

	err := reconciler.Reconcile("order-1", []domain.OrderLine{
		{ProductID: "prod-c", Qty: 1},
		{ProductID: "prod-a", Qty: 1},
		{ProductID: "prod-b", Qty: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"prod-a", "prod-b", "prod-c"}
	if len(recorder.order) != len(want) {
		t.Fatalf("decrements = %v, want %v", recorder.order, want)
	}
	for i := range want {
		if recorder.order[i] != want[i] {
			t.Fatalf("decrements = %v, want %v", recorder.order, want)
		}
	}
}

type recordingStock struct {
	order []string
}

func (s *recordingStock) DecrementIfAvailable(productID string, _ int32) (bool, error) {
	s.order = append(s.order, productID)
	return true, nil
}

func (s *recordingStock) Release(_ string, _ int32) error { return nil }
