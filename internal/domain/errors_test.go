package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsProductNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "product not found error",
			err:  &ProductNotFoundError{ProductID: "product-1"},
			want: true,
		},
		{
			name: "wrapped product not found error",
			err:  fmt.Errorf("validate: %w", &ProductNotFoundError{ProductID: "product-1"}),
			want: true,
		},
		{
			name: "other error",
			err:  ErrCustomerNotFound,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProductNotFound(tt.err); got != tt.want {
				t.Errorf("IsProductNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsInsufficientStock(t *testing.T) {
	err := &InsufficientStockError{ProductID: "product-1", Requested: 5, Available: 3}
	if !IsInsufficientStock(err) {
		t.Fatal("expected IsInsufficientStock to match typed error")
	}
	if IsInsufficientStock(ErrOrderNotFound) {
		t.Fatal("expected IsInsufficientStock to reject unrelated error")
	}
	// Гонка за сток — другой класс ошибки, их нельзя путать.
	if IsInsufficientStock(&StockConflictError{ProductID: "product-1"}) {
		t.Fatal("stock conflict must not be classified as insufficient stock")
	}
}

func TestIsStockConflict(t *testing.T) {
	err := fmt.Errorf("reconcile: %w", &StockConflictError{ProductID: "product-1", OrderID: "order-1"})
	if !IsStockConflict(err) {
		t.Fatal("expected IsStockConflict to match wrapped typed error")
	}
	if IsStockConflict(&InsufficientStockError{ProductID: "product-1"}) {
		t.Fatal("insufficient stock must not be classified as stock conflict")
	}
}

func TestIsRetriable(t *testing.T) {
	if !IsRetriable(fmt.Errorf("create order: %w", ErrPersistence)) {
		t.Fatal("persistence failures must be retriable")
	}
	if IsRetriable(&StockConflictError{ProductID: "product-1"}) {
		t.Fatal("stock conflict must not be retriable")
	}
	if IsRetriable(ErrCustomerNotFound) {
		t.Fatal("validation failures must not be retriable")
	}
}

func TestIsVersionConflict(t *testing.T) {
	if !IsVersionConflict(errors.Join(ErrOrderVersionConflict, errors.New("additional context"))) {
		t.Fatal("expected joined version conflict to match")
	}
	if IsVersionConflict(ErrOrderNotFound) {
		t.Fatal("expected unrelated error to not match")
	}
}

func TestTypedErrorMessages(t *testing.T) {
	notFound := &ProductNotFoundError{ProductID: "product-9"}
	if notFound.Error() != "product product-9 not found" {
		t.Fatalf("unexpected message: %s", notFound.Error())
	}

	short := &InsufficientStockError{ProductID: "product-9", Requested: 5, Available: 3}
	if short.Error() != "insufficient stock for product product-9: requested 5, available 3" {
		t.Fatalf("unexpected message: %s", short.Error())
	}
}
