package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countOrdersByStatus = `-- name: CountOrdersByStatus :many
SELECT status, count(*) AS order_count
FROM orders
GROUP BY status
`

type CountOrdersByStatusRow struct {
	Status     string `json:"status"`
	OrderCount int64  `json:"order_count"`
}

func (q *Queries) CountOrdersByStatus(ctx context.Context) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountOrdersByStatusRow{}
	for rows.Next() {
		var i CountOrdersByStatusRow
		if err := rows.Scan(&i.Status, &i.OrderCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDailySales = `-- name: GetDailySales :many
SELECT date_trunc('day', created_at)::date AS sale_date,
       count(*) AS order_count,
       COALESCE(sum(subtotal), 0)::numeric AS total_subtotal,
       COALESCE(sum(delivery_fee), 0)::numeric AS total_delivery,
       COALESCE(sum(total), 0)::numeric AS total_revenue
FROM orders
WHERE created_at >= $1 AND created_at < $2
  AND status <> 'cancelled'
GROUP BY sale_date
ORDER BY sale_date
`

type GetDailySalesParams struct {
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	CreatedAt_2 pgtype.Timestamptz `json:"created_at_2"`
}

type GetDailySalesRow struct {
	SaleDate      pgtype.Date    `json:"sale_date"`
	OrderCount    int64          `json:"order_count"`
	TotalSubtotal pgtype.Numeric `json:"total_subtotal"`
	TotalDelivery pgtype.Numeric `json:"total_delivery"`
	TotalRevenue  pgtype.Numeric `json:"total_revenue"`
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.CreatedAt, arg.CreatedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailySalesRow{}
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(
			&i.SaleDate,
			&i.OrderCount,
			&i.TotalSubtotal,
			&i.TotalDelivery,
			&i.TotalRevenue,
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

const getProductSales = `-- name: GetProductSales :many
SELECT oi.product_name,
       sum(oi.quantity)::bigint AS quantity_sold,
       COALESCE(sum((oi.product_price - oi.product_discount) * oi.quantity), 0)::numeric AS total_revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.created_at >= $1 AND o.created_at < $2
  AND o.status <> 'cancelled'
GROUP BY oi.product_name
ORDER BY quantity_sold DESC
`

type GetProductSalesParams struct {
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	CreatedAt_2 pgtype.Timestamptz `json:"created_at_2"`
}

type GetProductSalesRow struct {
	ProductName  string         `json:"product_name"`
	QuantitySold int64          `json:"quantity_sold"`
	TotalRevenue pgtype.Numeric `json:"total_revenue"`
}

func (q *Queries) GetProductSales(ctx context.Context, arg GetProductSalesParams) ([]GetProductSalesRow, error) {
	rows, err := q.db.Query(ctx, getProductSales, arg.CreatedAt, arg.CreatedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetProductSalesRow{}
	for rows.Next() {
		var i GetProductSalesRow
		if err := rows.Scan(&i.ProductName, &i.QuantitySold, &i.TotalRevenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
