package payment

import (
	"context"
	"database/sql"
)

// EventRepository is the append-only audit trail of reconciliation attempts.
type EventRepository interface {
	AppendEvent(ctx context.Context, e *StatusEvent) error
	ListEventsByOrderNo(ctx context.Context, orderNo string) ([]*StatusEvent, error)
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) AppendEvent(ctx context.Context, e *StatusEvent) error {
	const q = `
	INSERT INTO payment_status_events (
		order_no,
		transaction_id,
		status_code,
		status_message,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at;
	`

	return r.db.QueryRowContext(
		ctx,
		q,
		e.OrderNo,
		e.TransactionID,
		e.StatusCode,
		e.StatusMessage,
		[]byte(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *eventRepository) ListEventsByOrderNo(ctx context.Context, orderNo string) ([]*StatusEvent, error) {
	const q = `
	SELECT id, order_no, transaction_id, status_code, status_message, payload, created_at
	FROM payment_status_events
	WHERE order_no = $1
	ORDER BY created_at ASC;
	`

	rows, err := r.db.QueryContext(ctx, q, orderNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*StatusEvent
	for rows.Next() {
		var e StatusEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.OrderNo, &e.TransactionID, &e.StatusCode, &e.StatusMessage, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = payload
		events = append(events, &e)
	}
	return events, rows.Err()
}
