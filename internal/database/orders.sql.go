package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_name, customer_phone, governorate, city, full_address, payment_method,
       subtotal, delivery_fee, total, status, transfer_image_url, notes, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.Governorate,
		&i.City,
		&i.FullAddress,
		&i.PaymentMethod,
		&i.Subtotal,
		&i.DeliveryFee,
		&i.Total,
		&i.Status,
		&i.TransferImageUrl,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :exec
INSERT INTO orders (
    id, customer_name, customer_phone, governorate, city, full_address,
    payment_method, subtotal, delivery_fee, total, status, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

type CreateOrderParams struct {
	ID            uuid.UUID      `json:"id"`
	CustomerName  string         `json:"customer_name"`
	CustomerPhone string         `json:"customer_phone"`
	Governorate   string         `json:"governorate"`
	City          string         `json:"city"`
	FullAddress   string         `json:"full_address"`
	PaymentMethod string         `json:"payment_method"`
	Subtotal      pgtype.Numeric `json:"subtotal"`
	DeliveryFee   pgtype.Numeric `json:"delivery_fee"`
	Total         pgtype.Numeric `json:"total"`
	Status        string         `json:"status"`
	Notes         pgtype.Text    `json:"notes"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) error {
	_, err := q.db.Exec(ctx, createOrder,
		arg.ID,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.Governorate,
		arg.City,
		arg.FullAddress,
		arg.PaymentMethod,
		arg.Subtotal,
		arg.DeliveryFee,
		arg.Total,
		arg.Status,
		arg.Notes,
	)
	return err
}

type CreateOrderItemsParams struct {
	OrderID         uuid.UUID      `json:"order_id"`
	ProductID       pgtype.UUID    `json:"product_id"`
	ProductName     string         `json:"product_name"`
	ProductPrice    pgtype.Numeric `json:"product_price"`
	ProductDiscount pgtype.Numeric `json:"product_discount"`
	Quantity        int32          `json:"quantity"`
}

// iteratorForCreateOrderItems implements pgx.CopyFromSource.
type iteratorForCreateOrderItems struct {
	rows                 []CreateOrderItemsParams
	skippedFirstNextCall bool
}

func (r *iteratorForCreateOrderItems) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForCreateOrderItems) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].OrderID,
		r.rows[0].ProductID,
		r.rows[0].ProductName,
		r.rows[0].ProductPrice,
		r.rows[0].ProductDiscount,
		r.rows[0].Quantity,
	}, nil
}

func (r iteratorForCreateOrderItems) Err() error {
	return nil
}

// name: CreateOrderItems :copyfrom
func (q *Queries) CreateOrderItems(ctx context.Context, arg []CreateOrderItemsParams) (int64, error) {
	return q.db.CopyFrom(ctx, []string{"order_items"}, []string{"order_id", "product_id", "product_name", "product_price", "product_discount", "quantity"}, &iteratorForCreateOrderItems{rows: arg})
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1::text)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersParams struct {
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItemsByOrders = `-- name: ListOrderItemsByOrders :many
SELECT id, order_id, product_id, product_name, product_price, product_discount, quantity
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, id
`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.ProductID,
			&i.ProductName,
			&i.ProductPrice,
			&i.ProductDiscount,
			&i.Quantity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID       uuid.UUID `json:"id"`
	Status   string    `json:"status"`
	Status_2 string    `json:"status_2"`
}

// UpdateOrderStatus only succeeds while the order still has Status_2.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Status_2))
}

const setOrderTransferImage = `-- name: SetOrderTransferImage :exec
UPDATE orders SET transfer_image_url = $2
WHERE id = $1
`

type SetOrderTransferImageParams struct {
	ID               uuid.UUID   `json:"id"`
	TransferImageUrl pgtype.Text `json:"transfer_image_url"`
}

func (q *Queries) SetOrderTransferImage(ctx context.Context, arg SetOrderTransferImageParams) error {
	_, err := q.db.Exec(ctx, setOrderTransferImage, arg.ID, arg.TransferImageUrl)
	return err
}

const deleteOrderItemsByOrder = `-- name: DeleteOrderItemsByOrder :exec
DELETE FROM order_items WHERE order_id = $1
`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	return err
}

const deleteOrder = `-- name: DeleteOrder :one
DELETE FROM orders WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteOrder, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}
