package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `o.id, o.code, o.payment_session_id, o.customer_id, o.shipping_option_id, o.shipping_description,
	o.shipping_price, o.subtotal, o.total, o.currency, o.payment_method, o.status, o.carrier, o.tracking_number,
	o.created_at, o.updated_at`

const itemColumns = `id, order_id, product_id, custom, name, unit_price, quantity, subtotal, category, image_url,
	size, size_stock_id, materials`

func (t *tx) Insert(ctx context.Context, o *domain.Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (code, payment_session_id, customer_id, shipping_option_id, shipping_description,
			shipping_price, subtotal, total, currency, payment_method, status, carrier, tracking_number,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (payment_session_id) DO NOTHING
		RETURNING id`,
		o.Code, o.PaymentSessionID, o.BuyerID, nullID(o.ShippingOptionID), o.ShippingDescription,
		o.ShippingPrice, o.Subtotal, o.Total, o.Currency, string(o.PaymentMethod), string(o.Status),
		o.Carrier, o.TrackingNumber, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert order: %w", err)
	}
	return nil
}

func (t *tx) InsertLineItem(ctx context.Context, orderID int64, li *domain.LineItem) error {
	var materials []byte
	if len(li.Materials) > 0 {
		b, err := json.Marshal(li.Materials)
		if err != nil {
			return fmt.Errorf("postgres: encode materials: %w", err)
		}
		materials = b
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, custom, name, unit_price, quantity, subtotal, category,
			image_url, size, size_stock_id, materials)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		orderID, nullID(li.ProductID), li.Custom, li.Name, li.UnitPrice, li.Quantity, li.Subtotal, li.Category,
		li.ImageURL, li.Size, nullID(li.SizeStockID), materials,
	).Scan(&li.ID)
	if err != nil {
		return fmt.Errorf("postgres: insert order item: %w", err)
	}
	li.OrderID = orderID
	return nil
}

func (t *tx) Lock(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if o.Items, err = loadItems(ctx, t.tx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (t *tx) UpdateStatus(ctx context.Context, o *domain.Order) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $2, carrier = $3, tracking_number = $4, updated_at = $5
		WHERE id = $1`,
		o.ID, string(o.Status), o.Carrier, o.TrackingNumber, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) RecordStockIssue(ctx context.Context, is domain.StockIssue) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stock_issues (order_id, product_id, size_stock_id, kind, quantity, reason)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		is.OrderID, nullID(is.ProductID), nullID(is.SizeStockID), is.Kind, is.Quantity, is.Reason)
	if err != nil {
		return fmt.Errorf("postgres: record stock issue: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if o.Items, err = loadItems(ctx, s.pool, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) FindBySession(ctx context.Context, sessionID string) (*domain.Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.payment_session_id = $1`, sessionID))
}

func (s *Store) List(ctx context.Context, f domain.ListFilter) ([]domain.Summary, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`,
			COALESCE(c.name, ''), COALESCE(c.email, ''), COALESCE(c.phone, ''),
			COALESCE(a.street, ''), COALESCE(a.city, ''), COALESCE(a.state, ''), COALESCE(a.postal_code, '')
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		LEFT JOIN LATERAL (
			SELECT street, city, state, postal_code FROM addresses
			WHERE customer_id = o.customer_id
			ORDER BY is_default DESC, id
			LIMIT 1
		) a ON TRUE
		WHERE ($1 = '' OR o.status = $1)
		ORDER BY o.id DESC
		LIMIT $2 OFFSET $3`,
		string(f.Status), limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Summary, 0)
	for rows.Next() {
		var (
			sum  domain.Summary
			row  orderRow
			addr customer.Address
		)
		dest := append(row.dest(),
			&sum.BuyerName, &sum.BuyerEmail, &sum.BuyerPhone,
			&addr.Street, &addr.City, &addr.State, &addr.PostalCode)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("postgres: scan order summary: %w", err)
		}
		sum.Order = row.order()
		sum.BuyerAddress = addr.String()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) StockIssues(ctx context.Context, orderID int64) ([]domain.StockIssue, error) {
	return stockIssues(ctx, s.pool, orderID)
}

func (t *tx) StockIssues(ctx context.Context, orderID int64) ([]domain.StockIssue, error) {
	return stockIssues(ctx, t.tx, orderID)
}

func stockIssues(ctx context.Context, q querier, orderID int64) ([]domain.StockIssue, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, size_stock_id, kind, quantity, reason
		FROM stock_issues WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stock issues: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StockIssue, 0)
	for rows.Next() {
		var (
			is                domain.StockIssue
			productID, sizeID *int64
		)
		if err := rows.Scan(&is.ID, &is.OrderID, &productID, &sizeID, &is.Kind, &is.Quantity, &is.Reason); err != nil {
			return nil, fmt.Errorf("postgres: scan stock issue: %w", err)
		}
		is.ProductID, is.SizeStockID = idOrZero(productID), idOrZero(sizeID)
		out = append(out, is)
	}
	return out, rows.Err()
}

// orderRow holds the nullable and typed columns of an orders row during scanning.
type orderRow struct {
	o          domain.Order
	shippingID *int64
	method     string
	status     string
}

func (r *orderRow) dest() []any {
	return []any{
		&r.o.ID, &r.o.Code, &r.o.PaymentSessionID, &r.o.BuyerID, &r.shippingID, &r.o.ShippingDescription,
		&r.o.ShippingPrice, &r.o.Subtotal, &r.o.Total, &r.o.Currency, &r.method, &r.status, &r.o.Carrier,
		&r.o.TrackingNumber, &r.o.CreatedAt, &r.o.UpdatedAt,
	}
}

func (r *orderRow) order() domain.Order {
	o := r.o
	o.ShippingOptionID = idOrZero(r.shippingID)
	o.PaymentMethod = payment.Method(r.method)
	o.Status = domain.Status(r.status)
	return o
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var r orderRow
	if err := row.Scan(r.dest()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan order: %w", err)
	}
	o := r.order()
	return &o, nil
}

func loadItems(ctx context.Context, q querier, orderID int64) ([]domain.LineItem, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var (
			li                domain.LineItem
			productID, sizeID *int64
			materials         []byte
		)
		if err := rows.Scan(&li.ID, &li.OrderID, &productID, &li.Custom, &li.Name, &li.UnitPrice, &li.Quantity,
			&li.Subtotal, &li.Category, &li.ImageURL, &li.Size, &sizeID, &materials); err != nil {
			return nil, fmt.Errorf("postgres: scan order item: %w", err)
		}
		li.ProductID, li.SizeStockID = idOrZero(productID), idOrZero(sizeID)
		if len(materials) > 0 {
			var mats []cart.Material
			if err := json.Unmarshal(materials, &mats); err != nil {
				return nil, fmt.Errorf("postgres: decode materials: %w", err)
			}
			li.Materials = mats
		}
		items = append(items, li)
	}
	return items, rows.Err()
}
