package payment

import (
	"context"
	"database/sql"
)

// CallbackRecord is one row of the callback audit log.
type CallbackRecord struct {
	Provider      string
	OrderID       uint
	CheckoutID    string
	TransactionID string
	State         CallbackState
	Kind          ErrorKind
	Reason        string
	Payload       string
}

// Repository stores every inbound callback with the outcome it produced.
type Repository interface {
	SaveCallback(ctx context.Context, rec CallbackRecord) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveCallback(ctx context.Context, rec CallbackRecord) (int64, error) {
	const q = `
	INSERT INTO payment_callbacks (
		provider,
		order_id,
		checkout_id,
		transaction_id,
		state,
		error_kind,
		reason,
		payload
	)
	VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8)
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		rec.Provider,
		int64(rec.OrderID),
		rec.CheckoutID,
		rec.TransactionID,
		string(rec.State),
		string(rec.Kind),
		rec.Reason,
		rec.Payload,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}
