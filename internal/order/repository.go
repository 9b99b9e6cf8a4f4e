package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lilinku-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateOrderTx persists customer, address, order and items in one
	// transaction, before any provider call is made.
	CreateOrderTx(ctx context.Context, o *Order) error

	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	GetByShippingOrderNo(ctx context.Context, providerOrderNo string) (*Order, error)
	GetManyByOrderNos(ctx context.Context, orderNos []string) ([]*Order, error)

	// UpdateStatusFrom is a compare-and-swap: the status only changes when
	// the current status is one of from. Returns whether a row changed.
	UpdateStatusFrom(ctx context.Context, orderNo string, from []OrderStatus, to OrderStatus) (bool, error)

	// ClaimShippingOrderNo records the provider order number and advances
	// the order to processing, but only if no number is recorded yet. A
	// false return means another invocation already claimed it.
	ClaimShippingOrderNo(ctx context.Context, orderNo, providerOrderNo string) (bool, error)

	// SetAWB records the airway bill and advances a processing order to
	// label_created.
	SetAWB(ctx context.Context, orderNo, awb string) (bool, error)

	UpdateAWB(ctx context.Context, orderNo, awb string) error
	SetWaybillURL(ctx context.Context, orderNo, url string) error

	ListPendingPayment(ctx context.Context, olderThan time.Duration, limit int) ([]string, error)
	ListOrders(ctx context.Context, status *OrderStatus, limit, offset int32) ([]*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateOrderTx(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("order_no", o.OrderNo),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO customers (name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING id
	`, o.Customer.Name, o.Customer.Email, o.Customer.Phone).Scan(&o.Customer.ID)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	o.CustomerID = o.Customer.ID

	a := o.Address
	err = tx.QueryRowContext(ctx, `
		INSERT INTO addresses (
			street,
			province_id, province,
			city_id, city,
			district_id, district,
			subdistrict_id, subdistrict,
			postal_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, a.Street, a.ProvinceID, a.Province, a.CityID, a.City,
		a.DistrictID, a.District, a.SubdistrictID, a.Subdistrict, a.PostalCode,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	o.AddressID = a.ID

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_no, status,
			subtotal, shipping_cost, insurance_amount, service_fee, shipping_cashback, grand_total,
			courier, courier_service, vehicle_type,
			customer_id, address_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`, o.OrderNo, o.Status,
		o.Subtotal, o.ShippingCost, o.InsuranceAmount, o.ServiceFee, o.ShippingCashback, o.GrandTotal,
		o.Courier, o.CourierService, o.VehicleType,
		o.CustomerID, o.AddressID,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, variant_id, name, weight_grams, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, it.OrderID, it.VariantID, it.Name, it.WeightGrams, it.Quantity, it.UnitPrice, it.Subtotal,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info("order persisted", zap.Uint("order_id", o.ID))
	return nil
}

const orderColumns = `
	o.id, o.order_no, o.status,
	o.subtotal, o.shipping_cost, o.insurance_amount, o.service_fee, o.shipping_cashback, o.grand_total,
	o.courier, o.courier_service, o.vehicle_type,
	o.shipping_order_no, o.awb_number, o.waybill_url,
	o.customer_id, o.address_id, o.created_at, o.updated_at`

func (r *repository) scanOrder(row interface{ Scan(...interface{}) error }) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNo, &o.Status,
		&o.Subtotal, &o.ShippingCost, &o.InsuranceAmount, &o.ServiceFee, &o.ShippingCashback, &o.GrandTotal,
		&o.Courier, &o.CourierService, &o.VehicleType,
		&o.ShippingOrderNo, &o.AWBNumber, &o.WaybillURL,
		&o.CustomerID, &o.AddressID, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) GetByOrderNo(ctx context.Context, orderNo string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.order_no = $1
	`, orderNo)

	o, err := r.scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) GetByShippingOrderNo(ctx context.Context, providerOrderNo string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.shipping_order_no = $1
	`, providerOrderNo)

	o, err := r.scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) GetManyByOrderNos(ctx context.Context, orderNos []string) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.order_no = ANY($1)
	`, pq.Array(orderNos))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *repository) loadRelations(ctx context.Context, o *Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, variant_id, name, weight_grams, quantity, unit_price, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.Name,
			&it.WeightGrams, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var c Customer
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone FROM customers WHERE id = $1
	`, o.CustomerID).Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
	if err != nil {
		return err
	}
	o.Customer = &c

	var a Address
	err = r.db.QueryRowContext(ctx, `
		SELECT id, street, province_id, province, city_id, city,
		       district_id, district, subdistrict_id, subdistrict, postal_code
		FROM addresses WHERE id = $1
	`, o.AddressID).Scan(&a.ID, &a.Street, &a.ProvinceID, &a.Province, &a.CityID, &a.City,
		&a.DistrictID, &a.District, &a.SubdistrictID, &a.Subdistrict, &a.PostalCode)
	if err != nil {
		return err
	}
	o.Address = &a

	return nil
}

func (r *repository) UpdateStatusFrom(ctx context.Context, orderNo string, from []OrderStatus, to OrderStatus) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE order_no = $1 AND status = ANY($3)
	`, orderNo, to, pq.Array(fromStrs))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) ClaimShippingOrderNo(ctx context.Context, orderNo, providerOrderNo string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET shipping_order_no = $2, status = $3, updated_at = now()
		WHERE order_no = $1 AND shipping_order_no IS NULL
	`, orderNo, providerOrderNo, StatusProcessing)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) SetAWB(ctx context.Context, orderNo, awb string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET awb_number = $2, status = $3, updated_at = now()
		WHERE order_no = $1 AND status = $4 AND shipping_order_no IS NOT NULL
	`, orderNo, awb, StatusLabelCreated, StatusProcessing)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) UpdateAWB(ctx context.Context, orderNo, awb string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET awb_number = $2, updated_at = now() WHERE order_no = $1
	`, orderNo, awb)
	return err
}

func (r *repository) SetWaybillURL(ctx context.Context, orderNo, url string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET waybill_url = $2, updated_at = now() WHERE order_no = $1
	`, orderNo, url)
	return err
}

func (r *repository) ListPendingPayment(ctx context.Context, olderThan time.Duration, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_no
		FROM orders
		WHERE status = $1 AND created_at < now() - $2::interval
		ORDER BY created_at
		LIMIT $3
	`, StatusPendingPayment, fmt.Sprintf("%d seconds", int(olderThan.Seconds())), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orderNos []string
	for rows.Next() {
		var no string
		if err := rows.Scan(&no); err != nil {
			return nil, err
		}
		orderNos = append(orderNos, no)
	}
	return orderNos, rows.Err()
}

func (r *repository) ListOrders(ctx context.Context, status *OrderStatus, limit, offset int32) ([]*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o`
	args := []interface{}{}

	if status != nil {
		query += ` WHERE o.status = $1`
		args = append(args, *status)
	}
	query += fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
