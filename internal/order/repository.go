package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dwolla-gateway/internal/logger"

	"go.uber.org/zap"
)

// Repository is the order store owned by the commerce platform. The payment
// core only reads orders and asks for state transitions through it.
type Repository interface {
	Get(ctx context.Context, id uint) (*Order, error)
	UpdateStatus(ctx context.Context, id uint, status Status, note string) error
	AddNote(ctx context.Context, id uint, note string) error
	SetMetadata(ctx context.Context, id uint, key, value string) error

	// CompletePayment locks the order, re-checks NeedsPayment under the lock
	// and then records the note, the paid status and the metadata in one
	// transaction. It returns ErrAlreadyPaid when the order no longer needs
	// payment.
	CompletePayment(ctx context.Context, id uint, note string, meta []Meta) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, id uint) (*Order, error) {
	const q = `
		SELECT id, number, order_key, customer_id, status,
		       total, shipping_total, tax_total,
		       billing_first_name, billing_last_name, billing_email,
		       billing_city, billing_state, billing_postcode,
		       created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID, &o.Number, &o.OrderKey, &o.CustomerID, &o.Status,
		&o.Total, &o.ShippingTotal, &o.TaxTotal,
		&o.Billing.FirstName, &o.Billing.LastName, &o.Billing.Email,
		&o.Billing.City, &o.Billing.State, &o.Billing.Postcode,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	if o.Items, err = r.getItems(ctx, id); err != nil {
		return nil, err
	}
	if o.Fees, err = r.getFees(ctx, id); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *repository) getItems(ctx context.Context, orderID uint) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_title, sku, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductTitle, &it.SKU, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) getFees(ctx context.Context, orderID uint) ([]Fee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, total
		FROM order_fees
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order fees: %w", err)
	}
	defer rows.Close()

	var fees []Fee
	for rows.Next() {
		var f Fee
		if err := rows.Scan(&f.ID, &f.Name, &f.Total); err != nil {
			return nil, fmt.Errorf("scan order fee: %w", err)
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id uint, status Status, note string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}

	if note != "" {
		if err := insertNote(ctx, tx, id, note); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) AddNote(ctx context.Context, id uint, note string) error {
	return insertNote(ctx, r.db, id, note)
}

func (r *repository) SetMetadata(ctx context.Context, id uint, key, value string) error {
	return upsertMeta(ctx, r.db, id, key, value)
}

func (r *repository) CompletePayment(ctx context.Context, id uint, note string, meta []Meta) error {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", id))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var o Order
	err = tx.QueryRowContext(ctx, `
		SELECT status, total FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&o.Status, &o.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}

	if !o.NeedsPayment() {
		log.Info("order no longer needs payment under lock", zap.String("status", string(o.Status)))
		return ErrAlreadyPaid
	}

	if err := insertNote(ctx, tx, id, note); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, paid_at = now(), updated_at = now() WHERE id = $2
	`, StatusPaid, id); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	for _, m := range meta {
		if err := upsertMeta(ctx, tx, id, m.Key, m.Value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit payment completion", zap.Error(err))
		return err
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertNote(ctx context.Context, db execer, id uint, note string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO order_notes (order_id, content) VALUES ($1, $2)
	`, id, note)
	if err != nil {
		return fmt.Errorf("add order note: %w", err)
	}
	return nil
}

func upsertMeta(ctx context.Context, db execer, id uint, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO order_meta (order_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, meta_key)
		DO UPDATE SET meta_value = EXCLUDED.meta_value
	`, id, key, value)
	if err != nil {
		return fmt.Errorf("set order meta %q: %w", key, err)
	}
	return nil
}
