package cart

import (
	"context"
	"database/sql"
)

type Repository interface {
	ClearCart(ctx context.Context, customerID uint) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// ClearCart deletes every cart row of the customer and reports how many were removed.
func (r *repository) ClearCart(ctx context.Context, customerID uint) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
