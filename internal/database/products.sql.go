package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, price, discount, image, category_id, description, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.Discount,
		&i.Image,
		&i.CategoryID,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const listProducts = `-- name: ListProducts :many
SELECT ` + productColumns + ` FROM products
ORDER BY created_at ASC
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
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

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (name, price, discount, image, category_id, description)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + productColumns

type CreateProductParams struct {
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	Discount    pgtype.Numeric `json:"discount"`
	Image       pgtype.Text    `json:"image"`
	CategoryID  pgtype.UUID    `json:"category_id"`
	Description pgtype.Text    `json:"description"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.Name,
		arg.Price,
		arg.Discount,
		arg.Image,
		arg.CategoryID,
		arg.Description,
	))
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET name = $2, price = $3, discount = $4, image = $5, category_id = $6, description = $7
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	Discount    pgtype.Numeric `json:"discount"`
	Image       pgtype.Text    `json:"image"`
	CategoryID  pgtype.UUID    `json:"category_id"`
	Description pgtype.Text    `json:"description"`
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.Name,
		arg.Price,
		arg.Discount,
		arg.Image,
		arg.CategoryID,
		arg.Description,
	))
}

const deleteProduct = `-- name: DeleteProduct :one
DELETE FROM products WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteProduct, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const listProductImages = `-- name: ListProductImages :many
SELECT id, product_id, image_url, display_order FROM product_images
WHERE product_id = $1
ORDER BY display_order ASC
`

func (q *Queries) ListProductImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error) {
	rows, err := q.db.Query(ctx, listProductImages, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ProductImage{}
	for rows.Next() {
		var i ProductImage
		if err := rows.Scan(&i.ID, &i.ProductID, &i.ImageUrl, &i.DisplayOrder); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteProductImages = `-- name: DeleteProductImages :exec
DELETE FROM product_images WHERE product_id = $1
`

func (q *Queries) DeleteProductImages(ctx context.Context, productID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteProductImages, productID)
	return err
}

type CreateProductImagesParams struct {
	ProductID    uuid.UUID `json:"product_id"`
	ImageUrl     string    `json:"image_url"`
	DisplayOrder int32     `json:"display_order"`
}

// iteratorForCreateProductImages implements pgx.CopyFromSource.
type iteratorForCreateProductImages struct {
	rows                 []CreateProductImagesParams
	skippedFirstNextCall bool
}

func (r *iteratorForCreateProductImages) Next() bool {
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

func (r iteratorForCreateProductImages) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].ProductID,
		r.rows[0].ImageUrl,
		r.rows[0].DisplayOrder,
	}, nil
}

func (r iteratorForCreateProductImages) Err() error {
	return nil
}

// name: CreateProductImages :copyfrom
func (q *Queries) CreateProductImages(ctx context.Context, arg []CreateProductImagesParams) (int64, error) {
	return q.db.CopyFrom(ctx, []string{"product_images"}, []string{"product_id", "image_url", "display_order"}, &iteratorForCreateProductImages{rows: arg})
}
