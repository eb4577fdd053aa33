package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию каталога и стока.
func NewProductRepository(store *Store) *productRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) FindAllByID(ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price_minor, quantity, updated_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, len(ids))
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.PriceMinor, &product.Quantity, &product.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// DecrementIfAvailable выполняет compare-and-decrement одним UPDATE:
// условие quantity >= qty проверяется базой атомарно с самим списанием,
// поэтому конкурентные заказы не могут увести остаток в минус.
func (r *productRepository) DecrementIfAvailable(productID string, qty int32) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrLineQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $2,
		    updated_at = $3
		WHERE id = $1
		  AND quantity >= $2
	`, productID, qty, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("decrement product stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected == 1, nil
}

// Release возвращает qty на остаток. Товар должен существовать: release
// по неизвестному id сигнализирует о логической ошибке компенсации.
func (r *productRepository) Release(productID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrLineQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity + $2,
		    updated_at = $3
		WHERE id = $1
	`, productID, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("release product stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return &domain.ProductNotFoundError{ProductID: productID}
	}

	return nil
}

// Upsert создаёт товар или обновляет его каталожные поля. Остаток
// перезаписывается: операция предназначена для seed и админских сценариев.
func (r *productRepository) Upsert(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price_minor, quantity, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    price_minor = EXCLUDED.price_minor,
		    quantity = EXCLUDED.quantity,
		    updated_at = EXCLUDED.updated_at
	`, product.ID, product.Name, product.PriceMinor, product.Quantity, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	return nil
}

// Quantity возвращает текущий остаток товара.
func (r *productRepository) Quantity(productID string) (int32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var qty int32
	err := r.db.QueryRowContext(ctx, `SELECT quantity FROM products WHERE id = $1`, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &domain.ProductNotFoundError{ProductID: productID}
		}
		return 0, fmt.Errorf("select product quantity: %w", err)
	}

	return qty, nil
}

var _ domain.ProductCatalog = (*productRepository)(nil)
var _ domain.ProductStock = (*productRepository)(nil)
